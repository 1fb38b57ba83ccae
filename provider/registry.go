package provider

import (
	"fmt"
	"sync"
)

// Gateway factories register themselves by name from their package init
// functions. A deployment wires a single gateway, but lookups stay
// concurrency-safe for handlers that build a fresh provider per request.
var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]ProviderFactory)
)

// Register makes a gateway factory available under the given name.
// A second Register with the same name replaces the earlier factory.
func Register(name string, factory ProviderFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// CreateProvider builds a new, uninitialized provider instance for the
// named gateway. The caller configures it with Initialize.
func CreateProvider(name string) (PaymentProvider, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("payment provider '%s' is not registered", name)
	}

	return factory(), nil
}
