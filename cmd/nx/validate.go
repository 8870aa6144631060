package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goodtune/nx/internal/config"
)

var (
	validateDump bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the nx configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	if noColor {
		color.NoColor = true
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(errOut, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Check for unknown keys (always, not just with --dump)
	unknownKeys, err := findUnknownKeys(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(out, "✅ No configuration file at %s, defaults and environment are valid\n", configPath)
	case err != nil:
		fmt.Fprintf(errOut, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
		fmt.Fprintf(out, "✅ Configuration is valid: %s\n", configPath)
	default:
		fmt.Fprintf(out, "✅ Configuration is valid: %s\n", configPath)
	}

	// Warn about unknown keys
	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(out)
		red.Fprintf(out, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			red.Fprintf(out, "   - %s\n", key)
		}
		fmt.Fprintln(out, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	// If dump requested, show full configuration with defaults highlighted
	if validateDump {
		fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
		fmt.Fprintln(out, "FULL CONFIGURATION (values different from defaults are highlighted)")
		fmt.Fprintln(out, strings.Repeat("=", 80))

		dumpConfig(out, cfg, getDefaultConfig())
		fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
	}

	return nil
}

// getDefaultConfig creates a configuration with default values
func getDefaultConfig() *config.Config {
	v := viper.New()
	config.SetDefaults(v)

	var cfg config.Config
	_ = v.Unmarshal(&cfg)

	return &cfg
}

// findUnknownKeys loads the config file and checks for unknown keys
func findUnknownKeys(configPath string) ([]string, error) {
	keys, err := config.ReadKeys(configPath)
	if err != nil {
		return nil, err
	}

	validKeys := getValidKeys()

	unknown := []string{}
	for _, key := range keys {
		if !validKeys[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

// getValidKeys returns the set of configuration keys, which is exactly the
// set of keys with a default.
func getValidKeys() map[string]bool {
	v := viper.New()
	config.SetDefaults(v)

	keys := map[string]bool{}
	for _, key := range v.AllKeys() {
		keys[key] = true
	}
	return keys
}

// dumpConfig dumps configuration with color highlighting for non-default values
func dumpConfig(w io.Writer, cfg, defaultCfg *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	field := func(name string, value, defaultValue any) {
		dumpField(w, name, value, defaultValue, yellow, green)
	}

	// Server
	cyan.Fprintln(w, "\n[server]")
	field("  url", cfg.Server.URL, defaultCfg.Server.URL)
	field("  username", cfg.Server.Username, defaultCfg.Server.Username)
	field("  password", redactPassword(cfg.Server.Password), redactPassword(defaultCfg.Server.Password))
	field("  token", redactPassword(cfg.Server.Token), redactPassword(defaultCfg.Server.Token))
	field("  timeout", cfg.Server.Timeout, defaultCfg.Server.Timeout)
	field("  insecure_skip_verify", cfg.Server.InsecureSkipVerify, defaultCfg.Server.InsecureSkipVerify)

	// Client
	cyan.Fprintln(w, "\n[client]")
	field("  max_retries", cfg.Client.MaxRetries, defaultCfg.Client.MaxRetries)
	field("  retry_wait", cfg.Client.RetryWait, defaultCfg.Client.RetryWait)
	field("  cache_size", cfg.Client.CacheSize, defaultCfg.Client.CacheSize)
	field("  page_size", cfg.Client.PageSize, defaultCfg.Client.PageSize)

	// Logging
	cyan.Fprintln(w, "\n[logging]")
	field("  level", cfg.Logging.Level, defaultCfg.Logging.Level)
	field("  format", cfg.Logging.Format, defaultCfg.Logging.Format)

	// Metrics
	cyan.Fprintln(w, "\n[metrics]")
	field("  textfile", cfg.Metrics.Textfile, defaultCfg.Metrics.Textfile)
}

// dumpField prints a field with color if it differs from default
func dumpField(w io.Writer, name string, value, defaultValue any, modifiedColor, defaultColor *color.Color) {
	valueStr := fmt.Sprintf("%v", value)

	if reflect.DeepEqual(value, defaultValue) {
		defaultColor.Fprintf(w, "%s = %s\n", name, valueStr)
	} else {
		modifiedColor.Fprintf(w, "%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
