package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/gatekeeper/internal/models"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// AssertLoginFields checks that the body carries the ok and requiresCaptcha
// keys every /login reply has
func AssertLoginFields(t *testing.T, w *httptest.ResponseRecorder) {
	var raw map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), "Failed to decode response JSON")
	assert.Equal(t, false, raw["ok"], "ok should be false")
	assert.Contains(t, raw, "requiresCaptcha")
}

// MockLoginService implements LoginServiceInterface for testing
type MockLoginService struct {
	AttemptFunc func(ctx context.Context, attempt models.LoginAttempt) (*models.LoginResult, error)
	Attempts    []models.LoginAttempt
}

func (m *MockLoginService) Attempt(ctx context.Context, attempt models.LoginAttempt) (*models.LoginResult, error) {
	m.Attempts = append(m.Attempts, attempt)
	if m.AttemptFunc == nil {
		return nil, &models.ThrottleError{Reason: models.ErrUnauthorized}
	}
	return m.AttemptFunc(ctx, attempt)
}
