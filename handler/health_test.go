package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/cardsave/infra/config"
	"github.com/mstgnz/cardsave/infra/response"
)

func TestHealthHealthy(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)
	defer db.Close()

	settings := config.NewSettingsStore(nil)
	require.NoError(t, settings.SetOption(config.OptionMerchantID, "CardsaveMerchant"))
	h := NewHealthHandler(db, settings)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "healthy", data["status"])

	database := data["database"].(map[string]any)
	assert.Equal(t, true, database["connected"])

	stats := data["settings"].(map[string]any)
	assert.Equal(t, float64(1), stats["memory_options"])
	assert.Equal(t, "not_available", stats["storage"])
}

func TestHealthWithoutDatabase(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLiveness(t *testing.T) {
	h := NewHealthHandler(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()

	h.Liveness(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
