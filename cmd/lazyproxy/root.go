package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/lazyproxy/pkg/cli"
	"mercator-hq/lazyproxy/pkg/config"
)

// defaultConfigFile is read when --config is not given. It is optional.
const defaultConfigFile = "lazyproxy.yaml"

var (
	// Global flags
	cfgFile  string
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "lazyproxy",
	Short: "lazyproxy - start services on first request, stop them when idle",
	Long: `lazyproxy is a reverse proxy that keeps Docker Compose services stopped
until they are needed.

A request names its target with the X-Target-Service and X-Target-Port headers.
If the service is not running, lazyproxy starts it with docker compose, waits
until it is up and then forwards the request. A background reaper stops
services that have been idle longer than the configured threshold.

Configuration is read from a YAML file (optional), a .env file (optional) and
LAZYPROXY_* environment variables, in increasing order of precedence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a status derived from the
// returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file loaded before environment overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// loadConfig loads the configuration for cmd. A config file passed explicitly
// with --config must exist; the default one is optional. It returns the path
// of the file actually read, or "" when none was.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, "", cli.WrapConfigError(err)
	}

	required := cmd.Flags().Changed("config")
	cfg, err := config.Load(cfgFile, required)
	if err != nil {
		return nil, "", cli.WrapConfigError(err)
	}

	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}

	path := cfgFile
	if _, statErr := os.Stat(path); path == "" || errors.Is(statErr, fs.ErrNotExist) {
		path = ""
	}
	return cfg, path, nil
}

// revalidate validates cfg after flag overrides.
func revalidate(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return cli.WrapConfigError(err)
	}
	return nil
}
