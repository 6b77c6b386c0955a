// Package main provides the entry point for the campaignqa CLI.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/TFMV/campaignqa/cmd/campaignqa/config"
	"github.com/TFMV/campaignqa/pkg/errors"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "campaignqa",
	Short: "Ask questions about email campaign performance",
	Long: `campaignqa answers natural-language questions about an email campaign dataset.

Questions that need data are turned into a SQL query by a hosted text-generation
service, executed against the dataset loaded into an embedded engine, and
summarized. Other questions are answered directly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question about the dataset",
	Long: `Answer one question about the dataset.

Example:
  campaignqa ask --dataset ./campaigns.csv "Which subject line has the best open rate?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app, r *renderer) error {
			answer, err := a.handler.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			defer answer.Release()
			r.Answer(answer)
			return nil
		})
	},
}

var adviseCmd = &cobra.Command{
	Use:   "advise <subject line>",
	Short: "Suggest improvements for a subject line with a low open rate",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app, r *renderer) error {
			advice, err := a.handler.Advise(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			r.Advice(advice)
			return nil
		})
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app, r *renderer) error {
			err := runChat(ctx, a.handler, cmd.InOrStdin(), cmd.OutOrStdout(), r)
			if stderrors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg.Redacted()); err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		return enc.Close()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "campaignqa\n")
		fmt.Fprintf(out, "Version:    %s\n", version)
		fmt.Fprintf(out, "Commit:     %s\n", commit)
		fmt.Fprintf(out, "Build Date: %s\n", buildDate)
	},
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"dataset":         "dataset",
	"engine":          "engine",
	"database":        "database",
	"log-level":       "log_level",
	"log-format":      "log_format",
	"query-timeout":   "query_timeout",
	"max-rows":        "max_rows",
	"provider":        "generation.provider",
	"model":           "generation.model",
	"base-url":        "generation.base_url",
	"cache":           "cache.enabled",
	"metrics":         "metrics.enabled",
	"metrics-address": "metrics.address",
}

func init() {
	rootCmd.AddCommand(askCmd, adviseCmd, chatCmd, configCmd, versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file path (YAML, TOML or JSON)")
	flags.StringP("dataset", "d", "", "campaign dataset (CSV, or Parquet with duckdb)")
	flags.String("engine", "duckdb", "statement engine (duckdb, sqlite)")
	flags.String("database", ":memory:", "engine database path")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, console)")
	flags.Duration("query-timeout", 0, "statement timeout (0 disables)")
	flags.Int("max-rows", 10000, "maximum rows materialized per statement")
	flags.String("provider", "openai", "text generation provider (openai, gemini)")
	flags.String("model", "", "text generation model (provider default when empty)")
	flags.String("base-url", "", "OpenAI-compatible API base URL")
	flags.Bool("cache", true, "cache statement results")
	flags.Bool("metrics", false, "serve Prometheus metrics")
	flags.String("metrics-address", ":9090", "metrics server address")
	flags.Bool("no-color", false, "disable colored output")

	for flag, key := range flagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Errorf("failed to bind flag %s: %w", flag, err))
		}
	}
	if err := viper.BindPFlag("no_color", flags.Lookup("no-color")); err != nil {
		panic(fmt.Errorf("failed to bind flag no-color: %w", err))
	}
	if err := viper.BindPFlag("config", flags.Lookup("config")); err != nil {
		panic(fmt.Errorf("failed to bind flag config: %w", err))
	}

	setDefaults(config.DefaultConfig())

	viper.SetEnvPrefix("CAMPAIGNQA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// The provider SDKs' own variables work as fallbacks for the API key.
	if err := viper.BindEnv("generation.api_key", "CAMPAIGNQA_GENERATION_API_KEY", "CAMPAIGNQA_API_KEY", "GROQ_API_KEY", "GEMINI_API_KEY"); err != nil {
		panic(fmt.Errorf("failed to bind api key env: %w", err))
	}
}

// setDefaults registers every configuration key so that environment
// variables apply to keys without a flag.
func setDefaults(cfg *config.Config) {
	viper.SetDefault("engine", cfg.Engine)
	viper.SetDefault("database", cfg.Database)
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("log_format", cfg.LogFormat)
	viper.SetDefault("max_rows", cfg.MaxRows)
	viper.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	viper.SetDefault("generation.provider", cfg.Generation.Provider)
	viper.SetDefault("generation.api_key", "")
	viper.SetDefault("generation.timeout", cfg.Generation.Timeout)
	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.max_size", cfg.Cache.MaxSize)
	viper.SetDefault("cache.ttl", cfg.Cache.TTL)
	viper.SetDefault("connection_pool.max_open_connections", cfg.ConnectionPool.MaxOpenConnections)
	viper.SetDefault("connection_pool.max_idle_connections", cfg.ConnectionPool.MaxIdleConnections)
	viper.SetDefault("connection_pool.conn_max_lifetime", cfg.ConnectionPool.ConnMaxLifetime)
	viper.SetDefault("connection_pool.conn_max_idle_time", cfg.ConnectionPool.ConnMaxIdleTime)
	viper.SetDefault("connection_pool.health_check_period", cfg.ConnectionPool.HealthCheckPeriod)
	viper.SetDefault("connection_pool.connection_timeout", cfg.ConnectionPool.ConnectionTimeout)
	viper.SetDefault("connection_pool.slow_query_threshold", cfg.ConnectionPool.SlowQueryThreshold)
	viper.SetDefault("metrics.path", cfg.Metrics.Path)
	viper.SetDefault("metrics.namespace", cfg.Metrics.Namespace)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeInvalidRequest, errors.CodeConfigInvalid:
		return 2
	default:
		return 1
	}
}

// withApp loads the configuration, builds the app and runs fn until it
// returns or the process is interrupted.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app, r *renderer) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogging(cfg.LogLevel, cfg.LogFormat)
	logger.Debug().
		Str("version", version).
		Str("commit", commit).
		Str("engine", cfg.Engine).
		Str("provider", cfg.Generation.Provider).
		Msg("Starting campaignqa")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a, newRenderer(cmd.OutOrStdout(), !viper.GetBool("no_color")))
}

func loadConfig() (*config.Config, error) {
	// A missing .env file is fine; anything else is reported.
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// Load config file if specified
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigInvalid, fmt.Sprintf("invalid configuration: %v", err))
	}

	return cfg, nil
}

func setupLogging(level, format string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					short = file[i+1:]
					break
				}
			}
			return fmt.Sprintf("%s:%d", short, line)
		}
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	ctx := logger.Level(logLevel).
		With().
		Timestamp().
		Str("service", "campaignqa")
	if logLevel == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}

	return ctx.Logger()
}
