package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DemoKey, cfg.NASA.APIKey)
	assert.Equal(t, 30*time.Second, cfg.NASA.Timeout)
	assert.Equal(t, "v18.0", cfg.Instagram.APIVersion)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 1000, cfg.RateLimit.RequestsPerHour)
	assert.True(t, cfg.Retry.Enabled)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "info", cfg.Logging.Level)

	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.UsingDemoKey())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NASA_API_KEY", "env_key")
	t.Setenv("INSTAGRAM_ACCESS_TOKEN", "env_token")
	t.Setenv("INSTAGRAM_ACCOUNT_ID", "env_account")
	t.Setenv("GITHUB_REPOSITORY", "owner/repo")
	t.Setenv("NASAGRAM_LOG_LEVEL", "debug")
	t.Setenv("NASAGRAM_REQUESTS_PER_HOUR", "500")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "env_key", cfg.NASA.APIKey)
	assert.Equal(t, "env_token", cfg.Instagram.AccessToken)
	assert.Equal(t, "env_account", cfg.Instagram.AccountID)
	assert.Equal(t, "owner/repo", cfg.GitHub.Repository)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerHour)
	assert.False(t, cfg.UsingDemoKey())
}

func TestLoadFromEnvIgnoresEmptyValues(t *testing.T) {
	t.Setenv("NASA_API_KEY", "")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())
	assert.Equal(t, DemoKey, cfg.NASA.APIKey)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
nasa:
  api_key: file_key
instagram:
  account_id: "12345"
logging:
  level: warn
`), 0600))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "file_key", cfg.NASA.APIKey)
	assert.Equal(t, "12345", cfg.Instagram.AccountID)
	assert.Equal(t, "warn", cfg.Logging.Level)
	// Untouched sections keep their defaults
	assert.Equal(t, "v18.0", cfg.Instagram.APIVersion)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nasa: [not a map"), 0600))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"api-key":           "flag_key",
		"log-level":         "debug",
		"requests-per-hour": 250,
		"max-attempts":      5,
	})

	assert.Equal(t, "flag_key", cfg.NASA.APIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 250, cfg.RateLimit.RequestsPerHour)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nasa:\n  api_key: file_key\n"), 0600))

	t.Setenv("NASA_API_KEY", "env_key")

	// Env beats file
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "env_key", cfg.NASA.APIKey)

	// Flags beat env
	cfg, err = Load(path, map[string]interface{}{"api-key": "flag_key"})
	require.NoError(t, err)
	assert.Equal(t, "flag_key", cfg.NASA.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing api key", func(c *Config) { c.NASA.APIKey = "" }, "NASA API key is required"},
		{"bad timeout", func(c *Config) { c.NASA.Timeout = 0 }, "timeout must be positive"},
		{"bad rate limit", func(c *Config) { c.RateLimit.RequestsPerHour = 0 }, "requests per hour must be positive"},
		{"bad retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max attempts must be positive"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NASA.APIKey = ""
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NASA API key is required")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestValidateGraphAPI(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ValidateGraphAPI()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token")
	assert.Contains(t, err.Error(), "account ID")

	cfg.Instagram.AccessToken = "token"
	cfg.Instagram.AccountID = "123"
	assert.NoError(t, cfg.ValidateGraphAPI())
}

func TestValidateSession(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.ValidateSession())

	cfg.Instagram.Username = "user"
	cfg.Instagram.Password = "pass"
	assert.NoError(t, cfg.ValidateSession())
}

func TestSaveAndReload(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NASA.APIKey = "saved_key"
	cfg.Instagram.AccountID = "999"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "config may contain credentials")
	}

	reloaded := DefaultConfig()
	require.NoError(t, reloaded.LoadFromFile(path))
	assert.Equal(t, "saved_key", reloaded.NASA.APIKey)
	assert.Equal(t, "999", reloaded.Instagram.AccountID)
}
