package services_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/BradenHooton/gatekeeper/internal/models"
)

// MockCredentialStore implements CredentialStore for testing
type MockCredentialStore struct {
	Passwords      map[string]string
	GetPasswordErr error
	calls          atomic.Int64
}

func NewMockCredentialStore(passwords map[string]string) *MockCredentialStore {
	return &MockCredentialStore{Passwords: passwords}
}

func (m *MockCredentialStore) GetPassword(ctx context.Context, username string) (string, error) {
	m.calls.Add(1)
	if m.GetPasswordErr != nil {
		return "", m.GetPasswordErr
	}
	password, ok := m.Passwords[username]
	if !ok {
		return "", models.ErrNotFound
	}
	return password, nil
}

func (m *MockCredentialStore) Calls() int {
	return int(m.calls.Load())
}

// MockCaptchaVerifier implements CaptchaVerifier for testing
type MockCaptchaVerifier struct {
	VerifyFunc func(ctx context.Context, token, remoteIP string) (bool, error)
	calls      atomic.Int64
}

func (m *MockCaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	m.calls.Add(1)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token, remoteIP)
	}
	return token == "valid-token", nil
}

func (m *MockCaptchaVerifier) Calls() int {
	return int(m.calls.Load())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
