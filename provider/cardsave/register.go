package cardsave

import "github.com/mstgnz/cardsave/provider"

func init() {
	provider.Register("cardsave", NewProvider)
}
