package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DemoKey is NASA's shared demonstration API key. It works without signup
// but is rate limited to 30 requests per hour.
const DemoKey = "DEMO_KEY"

// Config holds all configuration options for nasagram
type Config struct {
	// NASA API settings
	NASA NASAConfig `yaml:"nasa" json:"nasa"`

	// Instagram settings (Graph API and session client)
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Facebook app credentials for token renewal
	Facebook FacebookConfig `yaml:"facebook" json:"facebook"`

	// GitHub settings for automated secret updates
	GitHub GitHubConfig `yaml:"github" json:"github"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Retry configuration
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// NASAConfig holds NASA API configuration
type NASAConfig struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// InstagramConfig holds Instagram credentials for both posting paths
type InstagramConfig struct {
	// Graph API (official)
	AccessToken string `yaml:"access_token" json:"access_token"`
	AccountID   string `yaml:"account_id" json:"account_id"`
	APIVersion  string `yaml:"api_version" json:"api_version"`

	// Session client (unofficial)
	Username    string `yaml:"username" json:"username"`
	Password    string `yaml:"password" json:"password"`
	SessionFile string `yaml:"session_file" json:"session_file"`
	UserAgent   string `yaml:"user_agent" json:"user_agent"`
}

// FacebookConfig holds the Meta app credentials used for token exchange
type FacebookConfig struct {
	AppID     string `yaml:"app_id" json:"app_id"`
	AppSecret string `yaml:"app_secret" json:"app_secret"`
}

// GitHubConfig holds settings for updating repository secrets
type GitHubConfig struct {
	Token      string `yaml:"token" json:"token"`
	Repository string `yaml:"repository" json:"repository"`
}

// RateLimitConfig holds rate limiting configuration for NASA API calls
type RateLimitConfig struct {
	RequestsPerHour int  `yaml:"requests_per_hour" json:"requests_per_hour"`
	Enabled         bool `yaml:"enabled" json:"enabled"`
}

// RetryConfig holds retry configuration for HTTP requests
type RetryConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		NASA: NASAConfig{
			APIKey:  DemoKey,
			Timeout: 30 * time.Second,
		},
		Instagram: InstagramConfig{
			APIVersion:  "v18.0",
			SessionFile: filepath.Join(os.TempDir(), "nasagram_session.json"),
			UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		RateLimit: RateLimitConfig{
			RequestsPerHour: 1000,
			Enabled:         true,
		},
		Retry: RetryConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseDelay:   1 * time.Second,
			MaxDelay:    30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if key := os.Getenv("NASA_API_KEY"); key != "" {
		c.NASA.APIKey = key
	}
	if token := os.Getenv("INSTAGRAM_ACCESS_TOKEN"); token != "" {
		c.Instagram.AccessToken = token
	}
	if accountID := os.Getenv("INSTAGRAM_ACCOUNT_ID"); accountID != "" {
		c.Instagram.AccountID = accountID
	}
	if username := os.Getenv("INSTAGRAM_USERNAME"); username != "" {
		c.Instagram.Username = username
	}
	if password := os.Getenv("INSTAGRAM_PASSWORD"); password != "" {
		c.Instagram.Password = password
	}
	if appID := os.Getenv("FACEBOOK_APP_ID"); appID != "" {
		c.Facebook.AppID = appID
	}
	if appSecret := os.Getenv("FACEBOOK_APP_SECRET"); appSecret != "" {
		c.Facebook.AppSecret = appSecret
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.GitHub.Token = token
	}
	if repo := os.Getenv("GITHUB_REPOSITORY"); repo != "" {
		c.GitHub.Repository = repo
	}

	// NASAGRAM_* overrides
	if sessionFile := os.Getenv("NASAGRAM_SESSION_FILE"); sessionFile != "" {
		c.Instagram.SessionFile = sessionFile
	}
	if userAgent := os.Getenv("NASAGRAM_USER_AGENT"); userAgent != "" {
		c.Instagram.UserAgent = userAgent
	}
	if rph := os.Getenv("NASAGRAM_REQUESTS_PER_HOUR"); rph != "" {
		var val int
		fmt.Sscanf(rph, "%d", &val)
		if val > 0 {
			c.RateLimit.RequestsPerHour = val
		}
	}
	if logLevel := os.Getenv("NASAGRAM_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("NASAGRAM_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".nasagram.yaml",
		".nasagram.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "nasagram", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "nasagram", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".nasagram.yaml"),
		filepath.Join(os.Getenv("HOME"), ".nasagram.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.NASA.APIKey == "" {
		errs = append(errs, errors.New("NASA API key is required"))
	}
	if c.NASA.Timeout <= 0 {
		errs = append(errs, errors.New("NASA API timeout must be positive"))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerHour <= 0 {
		errs = append(errs, errors.New("requests per hour must be positive"))
	}
	if c.Retry.Enabled {
		if c.Retry.MaxAttempts <= 0 {
			errs = append(errs, errors.New("retry max attempts must be positive"))
		}
		if c.Retry.BaseDelay <= 0 {
			errs = append(errs, errors.New("retry base delay must be positive"))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateGraphAPI checks that the Graph API credentials are present
func (c *Config) ValidateGraphAPI() error {
	var errs []error
	if c.Instagram.AccessToken == "" {
		errs = append(errs, errors.New("Instagram access token is required (INSTAGRAM_ACCESS_TOKEN)"))
	}
	if c.Instagram.AccountID == "" {
		errs = append(errs, errors.New("Instagram account ID is required (INSTAGRAM_ACCOUNT_ID)"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ValidateSession checks that the session client credentials are present
func (c *Config) ValidateSession() error {
	var errs []error
	if c.Instagram.Username == "" {
		errs = append(errs, errors.New("Instagram username is required (INSTAGRAM_USERNAME)"))
	}
	if c.Instagram.Password == "" {
		errs = append(errs, errors.New("Instagram password is required (INSTAGRAM_PASSWORD)"))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// UsingDemoKey reports whether the NASA client falls back to the shared key
func (c *Config) UsingDemoKey() bool {
	return c.NASA.APIKey == DemoKey
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Config may contain credentials, keep it private
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if apiKey, ok := flags["api-key"].(string); ok && apiKey != "" {
		c.NASA.APIKey = apiKey
	}
	if accessToken, ok := flags["access-token"].(string); ok && accessToken != "" {
		c.Instagram.AccessToken = accessToken
	}
	if accountID, ok := flags["account-id"].(string); ok && accountID != "" {
		c.Instagram.AccountID = accountID
	}
	if sessionFile, ok := flags["session-file"].(string); ok && sessionFile != "" {
		c.Instagram.SessionFile = sessionFile
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if rph, ok := flags["requests-per-hour"].(int); ok && rph > 0 {
		c.RateLimit.RequestsPerHour = rph
	}
	if maxAttempts, ok := flags["max-attempts"].(int); ok && maxAttempts > 0 {
		c.Retry.MaxAttempts = maxAttempts
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".nasagram.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
