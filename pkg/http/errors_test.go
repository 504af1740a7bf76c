package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
	"github.com/stretchr/testify/assert"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Empty(t, resp.Details)
}

func TestWriteJSON_ArbitraryBody(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteJSON(w, 423, map[string]any{"ok": false, "retryAfter": 30})

	assert.Equal(t, 423, w.Code)
	var resp map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, float64(30), resp["retryAfter"])
}

func TestSetRetryAfter(t *testing.T) {
	w := httptest.NewRecorder()
	pkghttp.SetRetryAfter(w, 12)
	assert.Equal(t, "12", w.Header().Get("Retry-After"))

	w = httptest.NewRecorder()
	pkghttp.SetRetryAfter(w, 0)
	assert.Empty(t, w.Header().Get("Retry-After"))
}

func TestCommonWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *httptest.ResponseRecorder)
		status int
		code   string
	}{
		{"bad request", func(w *httptest.ResponseRecorder) { pkghttp.WriteBadRequest(w, "Invalid input") }, 400, "bad_request"},
		{"too many requests", func(w *httptest.ResponseRecorder) { pkghttp.WriteTooManyRequests(w, "Slow down") }, 429, "rate_limit_exceeded"},
		{"service unavailable", func(w *httptest.ResponseRecorder) { pkghttp.WriteServiceUnavailable(w, "Try later") }, 503, "service_unavailable"},
		{"internal error", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w, "Boom") }, 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			var resp pkghttp.ErrorResponse
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}
