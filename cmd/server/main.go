package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/gatekeeper/internal/auth"
	"github.com/BradenHooton/gatekeeper/internal/background"
	"github.com/BradenHooton/gatekeeper/internal/config"
	"github.com/BradenHooton/gatekeeper/internal/handlers"
	middlewareCustom "github.com/BradenHooton/gatekeeper/internal/middleware"
	"github.com/BradenHooton/gatekeeper/internal/repositories"
	"github.com/BradenHooton/gatekeeper/internal/routes"
	"github.com/BradenHooton/gatekeeper/internal/services"
	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
	pkglogger "github.com/BradenHooton/gatekeeper/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Credential store is read once; a missing or corrupt file is fatal
	credentialRepo, err := repositories.LoadCredentialRepository(cfg.Store.CredentialsPath)
	if err != nil {
		logger.Error("failed to load credentials", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("credentials loaded",
		slog.String("path", cfg.Store.CredentialsPath),
		slog.Int("accounts", credentialRepo.Count()))

	attemptRepo := repositories.NewAttemptStateRepository()
	auditLogger := pkglogger.NewAuditLogger(logger)

	delayPolicy, err := services.NewDelayPolicy(
		cfg.Throttle.DelayStrategy,
		cfg.Throttle.BaseDelay,
		cfg.Throttle.MaxDelay,
		cfg.Throttle.DelaySchedule,
	)
	if err != nil {
		logger.Error("invalid delay policy", slog.Any("error", err))
		os.Exit(1)
	}

	// Captcha gating needs a secret
	var captchaVerifier services.CaptchaVerifier
	if cfg.Captcha.Enabled() {
		captchaVerifier = services.NewRecaptchaVerifier(cfg.Captcha.Secret, cfg.Captcha.VerifyURL, cfg.Captcha.Timeout, logger)
	} else if cfg.Throttle.CaptchaThreshold > 0 {
		logger.Warn("CAPTCHA_SECRET not set, captcha gating disabled",
			slog.Int("captcha_threshold", cfg.Throttle.CaptchaThreshold))
	}

	throttleService := services.NewThrottleService(
		credentialRepo,
		attemptRepo,
		captchaVerifier,
		services.ThrottleConfig{
			LockoutThreshold: cfg.Throttle.LockoutThreshold,
			LockoutDuration:  cfg.Throttle.LockoutDuration,
			CaptchaThreshold: cfg.Throttle.CaptchaThreshold,
			Delay:            delayPolicy,
			PenaltyMode:      services.PenaltyMode(cfg.Throttle.PenaltyMode),
		},
		logger,
		auditLogger,
	)

	// Timing delay for failed logins
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		Base:   cfg.Server.TimingDelayBase,
		Jitter: cfg.Server.TimingDelayJitter,
	})

	ipConfig := &pkghttp.IPConfig{TrustedProxies: pkghttp.ParseTrustedProxies(cfg.Server.TrustedProxies)}
	loginHandler := handlers.NewLoginHandler(throttleService, timingDelay, ipConfig, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, loginHandler, handlers.Health(attemptRepo), middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Server.LoginRateLimitPerMinute,
		IPConfig:          ipConfig,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	var cleanupManager *background.CleanupManager
	if cfg.Throttle.IdleTTL > 0 {
		cleanupManager = background.NewCleanupManager(attemptRepo, logger, cfg.Throttle.CleanupInterval, cfg.Throttle.IdleTTL)
		go cleanupManager.Start(cleanupCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server",
			slog.String("addr", server.Addr),
			slog.String("delay_strategy", cfg.Throttle.DelayStrategy),
			slog.String("penalty_mode", cfg.Throttle.PenaltyMode),
			slog.Int("lockout_threshold", cfg.Throttle.LockoutThreshold),
			slog.Bool("captcha_enabled", captchaVerifier != nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	if cleanupManager != nil {
		cleanupManager.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
