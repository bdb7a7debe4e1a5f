package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3" // YAML parser
)

// FileConfig defines the structure loaded from the YAML configuration file.
// Only fields that make sense to check into a repo live here; secrets and
// per-host tuning stay in the environment.
type FileConfig struct {
	ListenAddr      string `yaml:"listen_addr,omitempty"`
	AdminListenAddr string `yaml:"admin_listen_addr,omitempty"`
	ReportsDir      string `yaml:"reports_dir,omitempty"`
	ArxivBaseURL    string `yaml:"arxiv_base_url,omitempty"`
}

// Config holds the final server configuration, merged from file and environment
// variables. Fields are loaded from environment variables with the prefix
// "PAPERMCP_", which override file settings, which override built-in defaults.
type Config struct {
	// Config File Path (Loaded first from env)
	ConfigFilePath string `envconfig:"CONFIG_FILE" default:"configs/papermcp.yaml"`

	// ListenAddr serves the SSE transport; AdminListenAddr serves health
	// and the admin invoke/catalog endpoints.
	ListenAddr      string `envconfig:"LISTEN_ADDR" default:":8080"`
	AdminListenAddr string `envconfig:"ADMIN_LISTEN_ADDR" default:":8081"`

	// Tool backends
	ReportsDir   string `envconfig:"REPORTS_DIR" default:"./reports"`
	ArxivBaseURL string `envconfig:"ARXIV_BASE_URL" default:"http://export.arxiv.org/api/query"`

	// InvokeTimeout bounds a single tool invocation end to end.
	InvokeTimeout            time.Duration `envconfig:"INVOKE_TIMEOUT" default:"30s"`
	HTTPClientTimeout        time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"30s"`
	ShutdownTimeout          time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	ServerReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"5s"`
	ServerWriteTimeout       time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	ServerIdleTimeout        time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	OtelExporterOtlpEndpoint string        `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelExporterOtlpInsecure bool          `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	LogLevel                 string        `envconfig:"LOG_LEVEL" default:"info"`
}

// ParsedLogLevel returns the slog.Level based on the configured LogLevel string.
func (c *Config) ParsedLogLevel() slog.Level {
	return parseLogLevel(c.LogLevel)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		fallthrough
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration first from environment variables (to get the file
// path and env overrides), then fills remaining fields from the YAML file.
// A missing file at the default path is not an error; a path set via
// PAPERMCP_CONFIG_FILE must exist.
func Load() (*Config, error) {
	// 1. Load config from Env (defaults + env vars, and the file path itself)
	var cfg Config
	if err := envconfig.Process("papermcp", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	// 2. Load config from YAML file if present
	if cfg.ConfigFilePath != "" {
		yamlFile, err := os.ReadFile(cfg.ConfigFilePath)
		switch {
		case os.IsNotExist(err):
			// The default path is optional; a path set explicitly via
			// PAPERMCP_CONFIG_FILE must exist.
			if _, set := os.LookupEnv("PAPERMCP_CONFIG_FILE"); set {
				return nil, fmt.Errorf("config file '%s' does not exist", cfg.ConfigFilePath)
			}
			slog.Info("No config file found, using defaults/env vars only.", "path", cfg.ConfigFilePath)
			return &cfg, nil
		case err != nil:
			return nil, fmt.Errorf("failed to read config file '%s': %w", cfg.ConfigFilePath, err)
		}

		fileCfg := FileConfig{}
		if err := yaml.Unmarshal(yamlFile, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", cfg.ConfigFilePath, err)
		}
		slog.Info("Loaded configuration from file.", "path", cfg.ConfigFilePath)

		// 3. Apply file values where the environment did not set the field
		// explicitly. Env > file > default.
		applyFileValue(&cfg.ListenAddr, fileCfg.ListenAddr, "PAPERMCP_LISTEN_ADDR")
		applyFileValue(&cfg.AdminListenAddr, fileCfg.AdminListenAddr, "PAPERMCP_ADMIN_LISTEN_ADDR")
		applyFileValue(&cfg.ReportsDir, fileCfg.ReportsDir, "PAPERMCP_REPORTS_DIR")
		applyFileValue(&cfg.ArxivBaseURL, fileCfg.ArxivBaseURL, "PAPERMCP_ARXIV_BASE_URL")
	}

	return &cfg, nil
}

// applyFileValue writes a non-empty file value into dst unless the field's
// environment variable was set, which takes precedence.
func applyFileValue(dst *string, fileValue, envVar string) {
	if fileValue == "" {
		return
	}
	if _, set := os.LookupEnv(envVar); set {
		return
	}
	*dst = fileValue
}
