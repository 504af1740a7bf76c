package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/gatekeeper/internal/attack"
	"github.com/BradenHooton/gatekeeper/internal/config"
	"github.com/BradenHooton/gatekeeper/internal/services"
)

func attackConfig(t *testing.T, ts *TestServer, dictionary string) *config.AttackConfig {
	t.Helper()
	dir := t.TempDir()
	return &config.AttackConfig{
		TargetURL:        ts.LoginURL(),
		Concurrency:      1,
		RequestTimeout:   5 * time.Second,
		MaxTries:         60,
		DictionaryPath:   dictionary,
		RainbowTablePath: filepath.Join(dir, "rainbow_table.json"),
		FoundFlagPath:    filepath.Join(dir, ".password_found.lock"),
		StatsPath:        filepath.Join(dir, "pentest_stats.json"),
		LogPath:          filepath.Join(dir, "pentest_log.txt"),
		LogLevel:         "info",
		Charset:          "lower",
		MaxLength:        2,
		HashAlgorithms:   []string{"md5"},
		PollInterval:     50 * time.Millisecond,
		ProgressEvery:    1000,
		TotalInstances:   1,
	}
}

func runAttack(t *testing.T, cfg *config.AttackConfig, username string, mode attack.Mode) *attack.Result {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	result, err := attack.NewRunner(cfg, logger).Run(context.Background(), username, mode)
	require.NoError(t, err)
	return result
}

type loginReply struct {
	OK              bool   `json:"ok"`
	Error           string `json:"error"`
	RequiresCaptcha bool   `json:"requiresCaptcha"`
	RetryAfter      int    `json:"retryAfter"`
}

func login(t *testing.T, ts *TestServer, body map[string]string) (*http.Response, loginReply) {
	t.Helper()
	resp, err := ts.Request(http.MethodPost, "/login", body)
	require.NoError(t, err)
	var reply loginReply
	require.NoError(t, ParseJSONResponse(resp, &reply))
	return resp, reply
}

func TestAttack_UndefendedServerFalls(t *testing.T) {
	ts := NewTestServer(t, ServerOptions{})
	cfg := attackConfig(t, ts, WriteDictionary(t, "sunshine"))

	result := runAttack(t, cfg, "admin", attack.ModeDictionary)

	require.True(t, result.Found)
	assert.Equal(t, "sunshine1", result.Finding.Password)
	assert.Equal(t, attack.ExitFound, result.ExitCode())
}

func TestAttack_LockoutDefeatsDictionary(t *testing.T) {
	ts := NewTestServer(t, ServerOptions{Throttle: services.ThrottleConfig{
		LockoutThreshold: 5,
		LockoutDuration:  time.Hour,
	}})
	cfg := attackConfig(t, ts, WriteDictionary(t, "sunshine"))

	result := runAttack(t, cfg, "admin", attack.ModeDictionary)

	assert.False(t, result.Found)
	assert.Equal(t, 60, result.Submitted)
	assert.Equal(t, attack.ExitExhausted, result.ExitCode())

	state, ok := ts.States.Get("admin")
	require.True(t, ok)
	assert.True(t, state.IsLocked(time.Now()))

	resp, reply := login(t, ts, map[string]string{"username": "admin", "password": "sunshine1"})
	assert.Equal(t, http.StatusLocked, resp.StatusCode)
	assert.Equal(t, "account_locked", reply.Error)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestAttack_CooldownRejectsEvenTheRightPassword(t *testing.T) {
	ts := NewTestServer(t, ServerOptions{Throttle: services.ThrottleConfig{
		Delay: services.FixedDelay{Base: time.Hour},
	}})
	cfg := attackConfig(t, ts, WriteDictionary(t, "sunshine"))

	result := runAttack(t, cfg, "admin", attack.ModeDictionary)
	assert.False(t, result.Found)

	resp, reply := login(t, ts, map[string]string{"username": "admin", "password": "sunshine1"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "cooldown_active", reply.Error)
	assert.Equal(t, 3600, reply.RetryAfter)
}

func TestAttack_CaptchaGateStopsScripts(t *testing.T) {
	ts := NewTestServer(t, ServerOptions{
		Throttle: services.ThrottleConfig{CaptchaThreshold: 3},
		Captcha:  StaticCaptcha{Token: "human"},
	})
	cfg := attackConfig(t, ts, WriteDictionary(t, "sunshine"))

	result := runAttack(t, cfg, "admin", attack.ModeDictionary)
	assert.False(t, result.Found)

	resp, reply := login(t, ts, map[string]string{"username": "admin", "password": "sunshine1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "captcha_required", reply.Error)
	assert.True(t, reply.RequiresCaptcha)

	resp, reply = login(t, ts, map[string]string{"username": "admin", "password": "sunshine1", "captcha": "human"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, reply.OK)

	_, tracked := ts.States.Get("admin")
	assert.False(t, tracked, "success clears the state")
}

func TestAttack_BruteforceAgainstServer(t *testing.T) {
	ts := NewTestServer(t, ServerOptions{})
	cfg := attackConfig(t, ts, "")
	cfg.Concurrency = 8
	cfg.MaxTries = 0

	result := runAttack(t, cfg, "guest", attack.ModeBruteforce)
	assert.False(t, result.Found, "guest is five letters, longer than MAX_LENGTH")
	assert.Equal(t, 26+26*26, result.Submitted)

	cfg.Charset = "custom:gues"
	cfg.MaxLength = 5
	result = runAttack(t, cfg, "guest", attack.ModeBruteforce)
	assert.False(t, result.Found, "t is not in the charset")

	cfg.Charset = "custom:guest"
	result = runAttack(t, cfg, "guest", attack.ModeBruteforce)
	require.True(t, result.Found)
	assert.Equal(t, "guest", result.Finding.Password)
}

func TestAttack_EnumerateLearnsNothing(t *testing.T) {
	ts := NewTestServer(t, ServerOptions{})
	cfg := attackConfig(t, ts, "")

	result := runAttack(t, cfg, "admin", attack.ModeEnumerate)

	// The server answers 401 for unknown and known usernames alike
	assert.Equal(t, attack.CommonUsernames, result.Usernames)
	assert.Equal(t, attack.ExitFound, result.ExitCode())
}

func TestHealth_ReportsTrackedAccounts(t *testing.T) {
	ts := NewTestServer(t, ServerOptions{})

	login(t, ts, map[string]string{"username": "admin", "password": "wrong"})
	login(t, ts, map[string]string{"username": "nobody", "password": "wrong"})

	resp, err := ts.Request(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	var health struct {
		Status          string `json:"status"`
		TrackedAccounts int    `json:"trackedAccounts"`
	}
	require.NoError(t, ParseJSONResponse(resp, &health))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 2, health.TrackedAccounts)
}
