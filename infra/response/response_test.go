package response

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, 200, "done", map[string]string{"k": "v"})

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "done", resp.Message)
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, 400, "bad input", errors.New("field missing"))

	assert.Equal(t, 400, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "bad input", resp.Message)
	assert.Equal(t, "field missing", resp.Error)
}

func TestErrorWithoutCause(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, 500, "server error", nil)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Error)
}
