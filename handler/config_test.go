package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/cardsave/infra/config"
	"github.com/mstgnz/cardsave/infra/response"
	_ "github.com/mstgnz/cardsave/provider/cardsave"
)

func newConfigHandler() (*ConfigHandler, *config.SettingsStore) {
	settings := config.NewSettingsStore(nil) // memory-only
	return NewConfigHandler(settings, validator.New()), settings
}

func TestSetConfig(t *testing.T) {
	h, settings := newConfigHandler()

	body, _ := json.Marshal(SetConfigRequest{
		MerchantID:  "Card2-1234567",
		Password:    "secret123",
		Environment: "production",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/config", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()

	h.SetConfig(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Card2-1234567", settings.GetOption(config.OptionMerchantID, ""))
	assert.Equal(t, "secret123", settings.GetOption(config.OptionPassword, ""))
	assert.Equal(t, "production", settings.GetOption(config.OptionEnvironment, ""))
}

func TestSetConfigRejectsIncompleteCredentials(t *testing.T) {
	h, settings := newConfigHandler()

	// Merchant ID without a stored or supplied password cannot form a valid
	// gateway configuration
	body, _ := json.Marshal(SetConfigRequest{MerchantID: "Card2-1234567"})
	req := httptest.NewRequest(http.MethodPost, "/v1/config", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()

	h.SetConfig(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, settings.GetOption(config.OptionMerchantID, ""))
}

func TestSetConfigRejectsBadEnvironment(t *testing.T) {
	h, _ := newConfigHandler()

	body, _ := json.Marshal(SetConfigRequest{
		MerchantID:  "Card2-1234567",
		Password:    "secret123",
		Environment: "staging",
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/config", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()

	h.SetConfig(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetConfigRedactsPassword(t *testing.T) {
	h, settings := newConfigHandler()
	require.NoError(t, settings.SetOption(config.OptionMerchantID, "Card2-1234567"))
	require.NoError(t, settings.SetOption(config.OptionPassword, "secret123"))

	req := httptest.NewRequest(http.MethodGet, "/v1/config", nil)
	rec := httptest.NewRecorder()

	h.GetConfig(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Card2-1234567", data["merchantId"])
	assert.Equal(t, "********", data["password"])
}

func TestDeleteConfig(t *testing.T) {
	h, settings := newConfigHandler()
	require.NoError(t, settings.SetOption(config.OptionMerchantID, "Card2-1234567"))
	require.NoError(t, settings.SetOption(config.OptionPassword, "secret123"))

	req := httptest.NewRequest(http.MethodDelete, "/v1/config", nil)
	rec := httptest.NewRecorder()

	h.DeleteConfig(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, settings.GetOption(config.OptionMerchantID, ""))
	assert.Empty(t, settings.GetOption(config.OptionPassword, ""))
}

func TestRequiredConfig(t *testing.T) {
	h, _ := newConfigHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/config/required", nil)
	rec := httptest.NewRecorder()

	h.RequiredConfig(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	fields, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, fields, 3)
}
