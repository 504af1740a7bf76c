package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/handlers"
	middlewareCustom "github.com/BradenHooton/gatekeeper/internal/middleware"
	"github.com/BradenHooton/gatekeeper/internal/models"
	"github.com/BradenHooton/gatekeeper/internal/repositories"
	"github.com/BradenHooton/gatekeeper/internal/routes"
	"github.com/BradenHooton/gatekeeper/internal/services"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
)

// StaticCaptcha accepts exactly one token
type StaticCaptcha struct {
	Token string
}

// Verify checks token against the configured one
func (c StaticCaptcha) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	return token == c.Token, nil
}

// ServerOptions configures the login server under test
type ServerOptions struct {
	Credentials []models.Credential
	Throttle    services.ThrottleConfig
	Captcha     services.CaptchaVerifier
}

// TestServer wraps httptest.Server with the full login stack
type TestServer struct {
	Server *httptest.Server
	States *repositories.AttemptStateRepository
}

// NewTestServer wires the login server the same way cmd/server does, with
// the credential file written to a temp dir
func NewTestServer(t *testing.T, opts ServerOptions) *TestServer {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	credentials := opts.Credentials
	if credentials == nil {
		credentials = TestCredentials
	}
	path := filepath.Join(t.TempDir(), "users.json")
	data, err := json.Marshal(credentials)
	if err != nil {
		t.Fatalf("failed to encode credentials: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write credentials: %v", err)
	}

	credentialRepo, err := repositories.LoadCredentialRepository(path)
	if err != nil {
		t.Fatalf("failed to load credentials: %v", err)
	}
	attemptRepo := repositories.NewAttemptStateRepository()

	throttleService := services.NewThrottleService(
		credentialRepo,
		attemptRepo,
		opts.Captcha,
		opts.Throttle,
		logger,
		pkglogger.NewAuditLogger(logger),
	)

	ipConfig := &pkghttp.IPConfig{}
	loginHandler := handlers.NewLoginHandler(throttleService, auth.NewTimingDelay(auth.TimingConfig{}), ipConfig, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "test"}))
	r.Use(middlewareCustom.SecureLogger(logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, loginHandler, handlers.Health(attemptRepo), middlewareCustom.RateLimitConfig{IPConfig: ipConfig})

	ts := &TestServer{
		Server: httptest.NewServer(r),
		States: attemptRepo,
	}
	t.Cleanup(ts.Close)
	return ts
}

// LoginURL is the target URL for the attack CLI
func (ts *TestServer) LoginURL() string {
	return ts.Server.URL + "/login"
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return http.DefaultClient.Do(req)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
