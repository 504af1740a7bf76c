package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Delay strategies and penalty modes understood by the throttle
const (
	DelayFixed       = "fixed"
	DelayExponential = "exponential"
	DelayProgressive = "progressive"

	PenaltyCooldown = "cooldown"
	PenaltyBlock    = "block"
)

var validate = validator.New()

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Throttle ThrottleConfig
	Captcha  CaptchaConfig
}

type ServerConfig struct {
	Port                    string `validate:"required,numeric"`
	Env                     string
	LogLevel                string
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	TrustedProxies          []string
	LoginRateLimitPerMinute int           `validate:"gte=0"`
	TimingDelayBase         time.Duration `validate:"gte=0"`
	TimingDelayJitter       time.Duration `validate:"gte=0"`
}

type StoreConfig struct {
	CredentialsPath string `validate:"required"`
}

type ThrottleConfig struct {
	DelayStrategy    string `validate:"oneof=fixed exponential progressive"`
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	DelaySchedule    []time.Duration
	PenaltyMode      string        `validate:"oneof=cooldown block"`
	LockoutThreshold int           `validate:"gte=0"`
	LockoutDuration  time.Duration `validate:"gte=0"`
	CaptchaThreshold int           `validate:"gte=0"`
	IdleTTL          time.Duration `validate:"gte=0"`
	CleanupInterval  time.Duration
}

type CaptchaConfig struct {
	Secret    string
	VerifyURL string `validate:"required,url"`
	Timeout   time.Duration
}

// Enabled reports whether captcha gating can be used at all
func (c CaptchaConfig) Enabled() bool {
	return c.Secret != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:                    getEnv("PORT", "3000"),
			Env:                     getEnv("ENV", "development"),
			LogLevel:                getEnv("LOG_LEVEL", "info"),
			ReadTimeout:             getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:            getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:             getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			TrustedProxies:          getEnvAsList("TRUSTED_PROXIES", nil),
			LoginRateLimitPerMinute: getEnvAsInt("LOGIN_RATE_LIMIT_PER_MINUTE", 0),
			TimingDelayBase:         getEnvAsDuration("TIMING_DELAY_BASE", 50*time.Millisecond),
			TimingDelayJitter:       getEnvAsDuration("TIMING_DELAY_JITTER", 50*time.Millisecond),
		},
		Store: StoreConfig{
			CredentialsPath: getEnv("CREDENTIALS_PATH", "data/users.json"),
		},
		Throttle: ThrottleConfig{
			DelayStrategy:    strings.ToLower(getEnv("DELAY_STRATEGY", DelayExponential)),
			BaseDelay:        getEnvAsDuration("BASE_DELAY", 1*time.Second),
			MaxDelay:         getEnvAsDuration("MAX_DELAY", 30*time.Second),
			DelaySchedule:    getEnvAsDurationList("DELAY_SCHEDULE", []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second, 30 * time.Second}),
			PenaltyMode:      strings.ToLower(getEnv("PENALTY_MODE", PenaltyCooldown)),
			LockoutThreshold: getEnvAsInt("LOCKOUT_THRESHOLD", 5),
			LockoutDuration:  getEnvAsDuration("LOCKOUT_DURATION", 5*time.Minute),
			CaptchaThreshold: getEnvAsInt("CAPTCHA_THRESHOLD", 3),
			IdleTTL:          getEnvAsDuration("STATE_IDLE_TTL", 24*time.Hour),
			CleanupInterval:  getEnvAsDuration("STATE_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Captcha: CaptchaConfig{
			Secret:    getEnv("CAPTCHA_SECRET", ""),
			VerifyURL: getEnv("CAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
			Timeout:   getEnvAsDuration("CAPTCHA_TIMEOUT", 5*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints and the cross-field throttle policy
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	t := c.Throttle
	if t.CaptchaThreshold > 0 && t.LockoutThreshold > 0 && t.CaptchaThreshold >= t.LockoutThreshold {
		return fmt.Errorf("CAPTCHA_THRESHOLD (%d) must be lower than LOCKOUT_THRESHOLD (%d)",
			t.CaptchaThreshold, t.LockoutThreshold)
	}
	if t.LockoutThreshold > 0 && t.LockoutDuration <= 0 {
		return errors.New("LOCKOUT_DURATION must be positive when lockout is enabled")
	}

	switch t.DelayStrategy {
	case DelayExponential:
		if t.MaxDelay < t.BaseDelay {
			return fmt.Errorf("MAX_DELAY (%s) must not be lower than BASE_DELAY (%s)", t.MaxDelay, t.BaseDelay)
		}
	case DelayProgressive:
		if len(t.DelaySchedule) == 0 {
			return errors.New("DELAY_SCHEDULE must not be empty for the progressive strategy")
		}
	}

	// A held reply must still be written before the server gives up on it
	if t.PenaltyMode == PenaltyBlock && c.Server.WriteTimeout > 0 {
		held := t.longestDelay() + c.Server.TimingDelayBase + c.Server.TimingDelayJitter
		if held >= c.Server.WriteTimeout {
			return fmt.Errorf("longest %s delay plus timing padding (%s) must be lower than SERVER_WRITE_TIMEOUT (%s) in block mode",
				t.DelayStrategy, held, c.Server.WriteTimeout)
		}
	}

	if t.IdleTTL > 0 && t.CleanupInterval <= 0 {
		return errors.New("STATE_CLEANUP_INTERVAL must be positive when STATE_IDLE_TTL is set")
	}

	return nil
}

// longestDelay is the largest penalty the configured strategy can produce
func (t ThrottleConfig) longestDelay() time.Duration {
	switch t.DelayStrategy {
	case DelayExponential:
		return t.MaxDelay
	case DelayProgressive:
		return slices.Max(t.DelaySchedule)
	default:
		return t.BaseDelay
	}
}

// ParseLogLevel maps LOG_LEVEL values to slog levels, defaulting to info
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultVal
	}
	return items
}

// getEnvAsDurationList falls back to the default if any entry fails to parse
func getEnvAsDurationList(key string, defaultVal []time.Duration) []time.Duration {
	items := getEnvAsList(key, nil)
	if items == nil {
		return defaultVal
	}
	durations := make([]time.Duration, 0, len(items))
	for _, item := range items {
		d, err := time.ParseDuration(item)
		if err != nil || d < 0 {
			return defaultVal
		}
		durations = append(durations, d)
	}
	return durations
}
