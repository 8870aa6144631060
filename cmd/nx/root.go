package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goodtune/nx/internal/config"
	"github.com/goodtune/nx/internal/metrics"
	"github.com/goodtune/nx/internal/report"
	"github.com/goodtune/nx/internal/storage"
	"github.com/goodtune/nx/internal/storage/cache"
	"github.com/goodtune/nx/internal/storage/nuxeo"
)

var (
	version    = "dev"
	configPath string
	logLevel   string
	noColor    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nx",
	Short: "nx - command line client for a Nuxeo document repository",
	Long: `nx talks to a Nuxeo server over its REST API. It creates documents and
folder chains, uploads local files, lists, queries and moves documents.

Connection settings are read from ~/.nxrc (INI or JSON) or the file given
with --config, and can be overridden with NX_* environment variables,
e.g. NX_SERVER_PASSWORD.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries what a command needs to talk to the repository.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  storage.DocumentStore
	out    *report.Printer
}

// setup loads the configuration and builds the document store.
func setup(cmd *cobra.Command) (*app, error) {
	if noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		switch logLevel {
		case "debug", "info", "warn", "error":
			cfg.Logging.Level = logLevel
		default:
			return nil, fmt.Errorf("unknown log level: %q", logLevel)
		}
	}
	logger := setupLogger(cfg.Logging)

	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Str("version", version).
		Str("server", cfg.Server.URL).
		Str("user", cfg.Server.Username).
		Msg("Configured")

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		out:    report.New(cmd.OutOrStdout()),
	}, nil
}

func openStore(cfg *config.Config, logger zerolog.Logger) (storage.DocumentStore, error) {
	remote, err := nuxeo.Open(cfg.Server, cfg.Client, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository client: %w", err)
	}
	if cfg.Client.CacheSize == 0 {
		return remote, nil
	}
	return cache.New(remote, cfg.Client.CacheSize, logger)
}

// close writes the metrics textfile when one is configured.
func (a *app) close() {
	if a.cfg.Metrics.Textfile == "" {
		return
	}
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Error().Err(err).Msg("Failed to write metrics")
	}
}
