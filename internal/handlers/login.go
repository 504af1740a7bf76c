package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/models"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
)

const maxLoginBodyBytes = 16 << 10

// LoginServiceInterface defines the throttled login check
type LoginServiceInterface interface {
	Attempt(ctx context.Context, attempt models.LoginAttempt) (*models.LoginResult, error)
}

// LoginHandler handles POST /login
type LoginHandler struct {
	service  LoginServiceInterface
	timing   *auth.TimingDelay
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewLoginHandler creates a new LoginHandler. A nil timing delay answers
// failures immediately.
func NewLoginHandler(service LoginServiceInterface, timing *auth.TimingDelay, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{
		service:  service,
		timing:   timing,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=256"`
	Password string `json:"password" validate:"required,max=1024"`
	Captcha  string `json:"captcha,omitempty" validate:"max=4096"`
}

// LoginResponse is the body of every /login reply
type LoginResponse struct {
	OK              bool   `json:"ok"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
	RequiresCaptcha bool   `json:"requiresCaptcha"`
	RetryAfter      int    `json:"retryAfter,omitempty"`
}

// Login handles a login attempt
// @Summary Login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} LoginResponse
// @Failure 401 {object} LoginResponse
// @Failure 403 {object} LoginResponse
// @Failure 423 {object} LoginResponse
// @Failure 429 {object} LoginResponse
// @Failure 503 {object} LoginResponse
// @Router /login [post]
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "bad_request", "Invalid request body", false)
		return
	}

	if err := ValidateRequest(req); err != nil {
		writeFailure(w, http.StatusBadRequest, "bad_request", err.Error(), false)
		return
	}

	ctx := r.Context()
	result, err := h.service.Attempt(ctx, models.LoginAttempt{
		Username:     req.Username,
		Password:     req.Password,
		CaptchaToken: req.Captcha,
		RemoteIP:     pkghttp.ClientIP(r, h.ipConfig),
		UserAgent:    r.UserAgent(),
	})
	if err == nil {
		h.logger.Debug("login succeeded", slog.String("username", result.Username))
		pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{OK: true, Message: "Login successful"})
		return
	}

	if h.timing != nil {
		if werr := h.timing.WaitFrom(ctx, start); werr != nil {
			return
		}
	}

	var throttleErr *models.ThrottleError
	if !errors.As(err, &throttleErr) {
		// The verifier is only consulted once captcha is required
		if errors.Is(err, models.ErrCaptchaUnavailable) {
			writeFailure(w, http.StatusServiceUnavailable, "captcha_unavailable", "Captcha verification is temporarily unavailable", true)
			return
		}
		h.logger.Error("login failed unexpectedly", slog.Any("error", err))
		writeFailure(w, http.StatusInternalServerError, "internal_error", "Internal server error", false)
		return
	}

	if throttleErr.Hold > 0 {
		if herr := auth.Hold(ctx, throttleErr.Hold); herr != nil {
			return
		}
	}

	h.writeRejection(w, throttleErr)
}

func writeFailure(w http.ResponseWriter, status int, code, message string, requiresCaptcha bool) {
	pkghttp.WriteJSON(w, status, LoginResponse{
		Error:           code,
		Message:         message,
		RequiresCaptcha: requiresCaptcha,
	})
}

func (h *LoginHandler) writeRejection(w http.ResponseWriter, throttleErr *models.ThrottleError) {
	resp := LoginResponse{
		RequiresCaptcha: throttleErr.RequiresCaptcha,
		RetryAfter:      throttleErr.RetryAfterSeconds(),
	}

	var status int
	switch {
	case errors.Is(throttleErr, models.ErrAccountLocked):
		status = http.StatusLocked
		resp.Error = "account_locked"
		resp.Message = "Too many failed attempts. Account temporarily locked."
	case errors.Is(throttleErr, models.ErrCooldownActive):
		status = http.StatusTooManyRequests
		resp.Error = "cooldown_active"
		resp.Message = "Too many attempts. Slow down."
	case errors.Is(throttleErr, models.ErrCaptchaRequired):
		status = http.StatusForbidden
		resp.Error = "captcha_required"
		resp.Message = "Captcha required"
	case errors.Is(throttleErr, models.ErrInvalidCaptcha):
		status = http.StatusForbidden
		resp.Error = "captcha_invalid"
		resp.Message = "Captcha verification failed"
	default:
		status = http.StatusUnauthorized
		resp.Error = "invalid_credentials"
		resp.Message = "Invalid username or password"
	}

	pkghttp.SetRetryAfter(w, resp.RetryAfter)
	pkghttp.WriteJSON(w, status, resp)
}
