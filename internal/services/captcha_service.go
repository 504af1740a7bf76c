package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CaptchaVerifier checks a captcha token with a third party.
// A transport failure is reported as an error, a rejected token as false.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// RecaptchaVerifier talks to a reCAPTCHA compatible siteverify endpoint
type RecaptchaVerifier struct {
	client    *http.Client
	secret    string
	verifyURL string
	logger    *slog.Logger
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// NewRecaptchaVerifier creates a new RecaptchaVerifier
func NewRecaptchaVerifier(secret, verifyURL string, timeout time.Duration, logger *slog.Logger) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		client:    &http.Client{Timeout: timeout},
		secret:    secret,
		verifyURL: verifyURL,
		logger:    logger,
	}
}

// Verify posts {secret, response, remoteip} as a form and reads {success}
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("captcha verification returned status %d", resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode captcha response: %w", err)
	}

	if !body.Success {
		v.logger.Info("captcha rejected", slog.Any("error_codes", body.ErrorCodes))
	}
	return body.Success, nil
}
