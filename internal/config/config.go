package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// DefaultPath is the rc file read when no --config flag is given.
// A missing file at this location is not an error.
const DefaultPath = "~/.nxrc"

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Client  ClientConfig  `mapstructure:"client"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig describes how to reach the Nuxeo server
type ServerConfig struct {
	URL                string `mapstructure:"url"`
	Username           string `mapstructure:"username"`
	Password           string `mapstructure:"password"`
	Token              string `mapstructure:"token"` // X-Authentication-Token, used instead of basic auth when set
	Timeout            string `mapstructure:"timeout"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// ClientConfig tunes the REST client
type ClientConfig struct {
	MaxRetries int    `mapstructure:"max_retries"` // retries for read-only requests; 0 disables
	RetryWait  string `mapstructure:"retry_wait"`
	CacheSize  int    `mapstructure:"cache_size"` // documents kept by the lookup cache; 0 disables
	PageSize   int    `mapstructure:"page_size"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig defines where request metrics are written on exit
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	v.SetEnvPrefix("NX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := readFile(v, configPath); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.url", "http://localhost:8080/nuxeo")
	v.SetDefault("server.username", "Administrator")
	v.SetDefault("server.password", "Administrator")
	v.SetDefault("server.token", "")
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.insecure_skip_verify", false)

	// Client defaults
	v.SetDefault("client.max_retries", 0)
	v.SetDefault("client.retry_wait", "1s")
	v.SetDefault("client.cache_size", 256)
	v.SetDefault("client.page_size", 100)

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	// Metrics defaults
	v.SetDefault("metrics.textfile", "")
}

// ReadKeys returns every key set in the given config file, without defaults.
func ReadKeys(configPath string) ([]string, error) {
	v := viper.New()
	path, err := expandHome(configPath)
	if err != nil {
		return nil, err
	}
	if err := readInto(v, path); err != nil {
		return nil, err
	}
	return v.AllKeys(), nil
}

func readFile(v *viper.Viper, configPath string) error {
	explicit := configPath != "" && configPath != DefaultPath
	if configPath == "" {
		configPath = DefaultPath
	}

	path, err := expandHome(configPath)
	if err != nil {
		return err
	}

	if err := readInto(v, path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			// No rc file, use defaults and environment variables
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// readInto reads JSON, YAML and TOML through viper and INI rc files
// through ini.v1. Extension-less files are sniffed: a leading '{' means JSON.
func readInto(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch format {
	case "json", "yaml", "yml", "toml":
	case "ini", "cfg", "conf":
		format = "ini"
	default:
		if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
			format = "json"
		} else {
			format = "ini"
		}
	}

	if format != "ini" {
		v.SetConfigType(format)
		return v.ReadConfig(bytes.NewReader(data))
	}

	values, err := decodeINI(data)
	if err != nil {
		return err
	}
	return v.MergeConfigMap(values)
}

// decodeINI turns sections into nested maps. Keys of the unnamed default
// section belong to [server], which is how flat nuxeo rc files are written.
func decodeINI(data []byte) (map[string]any, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ini: %w", err)
	}

	out := map[string]any{}
	for _, section := range f.Sections() {
		name := strings.ToLower(section.Name())
		if name == strings.ToLower(ini.DefaultSection) {
			name = "server"
		}
		keys := section.Keys()
		if len(keys) == 0 {
			continue
		}
		values, ok := out[name].(map[string]any)
		if !ok {
			values = map[string]any{}
			out[name] = values
		}
		for _, key := range keys {
			values[strings.ToLower(key.Name())] = key.String()
		}
	}
	return out, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.URL == "" {
		return fmt.Errorf("server url is required")
	}
	u, err := url.Parse(cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server url must use http or https scheme, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server url has no host: %s", cfg.Server.URL)
	}
	cfg.Server.URL = strings.TrimRight(cfg.Server.URL, "/")

	timeout, err := time.ParseDuration(cfg.Server.Timeout)
	if err != nil {
		return fmt.Errorf("invalid server timeout: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("server timeout must be positive, got: %v", timeout)
	}

	if cfg.Client.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative, got: %d", cfg.Client.MaxRetries)
	}
	if _, err := time.ParseDuration(cfg.Client.RetryWait); err != nil {
		return fmt.Errorf("invalid retry_wait: %w", err)
	}
	if cfg.Client.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got: %d", cfg.Client.CacheSize)
	}
	if cfg.Client.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got: %d", cfg.Client.PageSize)
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level: %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown logging format: %q", cfg.Logging.Format)
	}

	return nil
}
