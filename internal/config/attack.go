package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

// AttackConfig configures the attack CLI
type AttackConfig struct {
	TargetURL      string        `validate:"required,url"`
	Concurrency    int           `validate:"gte=1"`
	RequestTimeout time.Duration `validate:"gt=0"`
	RequestDelay   time.Duration `validate:"gte=0"`
	MaxTries       int           `validate:"gte=0"` // 0 means unlimited

	DictionaryPath   string
	RainbowTablePath string
	FoundFlagPath    string
	StatsPath        string
	LogPath          string
	LogLevel         string

	Charset        string   `validate:"required"`
	MaxLength      int      `validate:"gte=1"`
	HashAlgorithms []string `validate:"min=1"`
	PairwiseLimit  int      `validate:"gte=0"`

	PollInterval  time.Duration `validate:"gt=0"`
	ProgressEvery int           `validate:"gte=1"`

	InstanceID     int `validate:"gte=0"`
	TotalInstances int `validate:"gte=1"`
}

// LoadAttack reads the attack configuration from the environment.
// Instance parameters may be overridden by CLI arguments, so callers run
// Validate again after applying them.
func LoadAttack() (*AttackConfig, error) {
	_ = godotenv.Load()

	cfg := &AttackConfig{
		TargetURL:      getEnv("TARGET_URL", "http://localhost:3000/login"),
		Concurrency:    getEnvAsInt("CONCURRENCY", 10),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Second),
		RequestDelay:   getEnvAsDuration("REQUEST_DELAY", 0),
		MaxTries:       getEnvAsInt("MAX_TRIES", 20_000_000),

		DictionaryPath:   getEnv("DICTIONARY_PATH", "dictionary.txt"),
		RainbowTablePath: getEnv("RAINBOW_TABLE_PATH", "rainbow_table.json"),
		FoundFlagPath:    getEnv("FOUND_FLAG_PATH", ".password_found.lock"),
		StatsPath:        getEnv("STATS_PATH", "pentest_stats.json"),
		LogPath:          getEnv("LOG_PATH", "pentest_log.txt"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),

		Charset:        getEnv("CHARSET", "attack"),
		MaxLength:      getEnvAsInt("MAX_LENGTH", 6),
		HashAlgorithms: getEnvAsList("HASH_ALGORITHMS", []string{"md5", "sha1", "sha256"}),
		PairwiseLimit:  getEnvAsInt("PAIRWISE_LIMIT", 200),

		PollInterval:  getEnvAsDuration("POLL_INTERVAL", 2*time.Second),
		ProgressEvery: getEnvAsInt("PROGRESS_EVERY", 1000),

		InstanceID:     getEnvAsInt("INSTANCE_ID", 0),
		TotalInstances: getEnvAsInt("TOTAL_INSTANCES", 1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks field constraints and the instance range
func (c *AttackConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.InstanceID >= c.TotalInstances {
		return fmt.Errorf("instance id %d out of range for %d instances", c.InstanceID, c.TotalInstances)
	}
	return nil
}

// Sharded reports whether several instances split the search
func (c *AttackConfig) Sharded() bool {
	return c.TotalInstances > 1
}
