package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"nasagram/pkg/config"
	"nasagram/pkg/logger"
	"nasagram/pkg/nasa"
	"nasagram/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	apiKey     string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nasagram",
	Short: "NASA API client and Instagram posting automation",
	Long: `nasagram is a command-line client for NASA's public APIs with
Instagram posting automation built on top.

Features:
  - Astronomy Picture of the Day: today, by date, ranges, random picks
  - Mars Rover Photos: manifests, photos by sol or earth date, latest
  - TechTransfer: patents, software and spinoff search
  - Instagram posting via the official Graph API or a web session
  - Access token diagnosis and renewal, including CI secret updates
  - Secure credential storage using the system keychain

Get a free NASA API key at https://api.nasa.gov - the shared DEMO_KEY
works but is limited to 30 requests per hour.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.nasagram.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "NASA API key (overrides NASA_API_KEY)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`nasagram {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig loads the layered configuration and initializes logging. Every
// command goes through here before doing work.
func loadConfig(extra map[string]interface{}) *config.Config {
	flags := make(map[string]interface{})
	if apiKey != "" {
		flags["api-key"] = apiKey
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	logger.Initialize(&cfg.Logging)

	if cfg.UsingDemoKey() {
		ui.PrintWarning("Using DEMO_KEY (30 requests/hour). Get a free key at https://api.nasa.gov")
	}

	return cfg
}

// newNASAClient builds the shared NASA client from configuration
func newNASAClient(cfg *config.Config) *nasa.Client {
	opts := []nasa.Option{nasa.WithTimeout(cfg.NASA.Timeout)}
	if cfg.RateLimit.Enabled {
		// DEMO_KEY's quota is fixed upstream regardless of configuration
		limiter := nasa.NewLimiter(cfg.RateLimit.RequestsPerHour)
		if cfg.UsingDemoKey() {
			limiter = nasa.NewLimiterForKey(cfg.NASA.APIKey)
		}
		opts = append(opts, nasa.WithLimiter(limiter))
	}
	if cfg.Retry.Enabled {
		opts = append(opts, nasa.WithRetry(&cfg.Retry))
	}
	return nasa.NewClient(cfg.NASA.APIKey, logger.GetLogger(), opts...)
}

// fail prints the error, logs it and exits with status 1
func fail(msg string, err error) {
	logger.WithError(err).Error(msg)
	ui.PrintError(msg, err.Error())
	os.Exit(1)
}
