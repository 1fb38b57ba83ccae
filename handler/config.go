package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mstgnz/cardsave/infra/config"
	"github.com/mstgnz/cardsave/infra/response"
	"github.com/mstgnz/cardsave/provider"
)

// ConfigHandler handles gateway configuration HTTP requests
type ConfigHandler struct {
	settings *config.SettingsStore
	validate *validator.Validate
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(settings *config.SettingsStore, validate *validator.Validate) *ConfigHandler {
	return &ConfigHandler{
		settings: settings,
		validate: validate,
	}
}

// SetConfigRequest carries the gateway credentials to store
type SetConfigRequest struct {
	MerchantID  string `json:"merchantId" validate:"omitempty,min=5,max=50"`
	Password    string `json:"password" validate:"omitempty,min=5,max=100"`
	Environment string `json:"environment" validate:"omitempty,oneof=sandbox production"`
}

// SetConfig stores gateway settings. Only the fields present in the request
// are written; the resulting combined configuration is validated against the
// provider's requirements before anything is persisted.
func (h *ConfigHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var req SetConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	merged := h.settings.GatewayConfig()
	if req.MerchantID != "" {
		merged["merchantId"] = req.MerchantID
	}
	if req.Password != "" {
		merged["password"] = req.Password
	}
	if req.Environment != "" {
		merged["environment"] = req.Environment
	}

	gateway, err := provider.CreateProvider("cardsave")
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Provider not available", err)
		return
	}
	if err := gateway.ValidateConfig(merged); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid gateway configuration", err)
		return
	}

	updates := map[string]string{}
	if req.MerchantID != "" {
		updates[config.OptionMerchantID] = req.MerchantID
	}
	if req.Password != "" {
		updates[config.OptionPassword] = req.Password
	}
	if req.Environment != "" {
		updates[config.OptionEnvironment] = req.Environment
	}

	for key, value := range updates {
		if err := h.settings.SetOption(key, value); err != nil {
			response.Error(w, http.StatusInternalServerError, "Failed to store setting", err)
			return
		}
	}

	response.Success(w, http.StatusOK, "Gateway configuration updated", map[string]any{
		"updated": len(updates),
	})
}

// GetConfig returns the stored gateway settings with the password redacted
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.settings.GatewayConfig()
	if cfg["password"] != "" {
		cfg["password"] = "********"
	}
	response.Success(w, http.StatusOK, "Gateway configuration", cfg)
}

// DeleteConfig removes the stored gateway credentials
func (h *ConfigHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	for _, key := range []string{config.OptionMerchantID, config.OptionPassword, config.OptionEnvironment} {
		if err := h.settings.DeleteOption(key); err != nil {
			response.Error(w, http.StatusInternalServerError, "Failed to delete setting", err)
			return
		}
	}
	response.Success(w, http.StatusOK, "Gateway configuration deleted", nil)
}

// RequiredConfig lists the configuration fields the gateway expects
func (h *ConfigHandler) RequiredConfig(w http.ResponseWriter, r *http.Request) {
	gateway, err := provider.CreateProvider("cardsave")
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Provider not available", err)
		return
	}

	environment := r.URL.Query().Get("environment")
	if environment != "production" {
		environment = "sandbox"
	}

	response.Success(w, http.StatusOK, "Required configuration fields",
		gateway.GetRequiredConfig(environment))
}
