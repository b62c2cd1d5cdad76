package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oarkflow/bcl"
	"github.com/oarkflow/errors"
	"github.com/oarkflow/json"
	"gopkg.in/yaml.v3"

	"github.com/oarkflow/script"
)

var (
	ErrNilConfig         = errors.New("config is nil")
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// Config is the file configuration shared by the CLI and the server.
type Config struct {
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Storage StorageConfig `json:"storage" yaml:"storage"`
	History HistoryConfig `json:"history" yaml:"history"`
	Imports []string      `json:"imports" yaml:"imports"`
}

// RuntimeConfig mirrors script.RuntimeConfig. Zero values keep the
// interpreter defaults.
type RuntimeConfig struct {
	MaxLoops         int  `json:"max_loops" yaml:"max_loops"`
	ContinueOnErrors bool `json:"continue_on_errors" yaml:"continue_on_errors"`
	LogExecution     bool `json:"log_execution" yaml:"log_execution"`
	MaxCallDepth     int  `json:"max_call_depth" yaml:"max_call_depth"`
}

type ServerConfig struct {
	Address string `json:"address" yaml:"address"`
	// RequestTimeout is a Go duration string such as "30s".
	RequestTimeout string `json:"request_timeout" yaml:"request_timeout"`
}

type StorageConfig struct {
	Path string `json:"path" yaml:"path"`
}

type HistoryConfig struct {
	// Transcript is the JSON file every run is appended to. Empty disables it.
	Transcript string `json:"transcript" yaml:"transcript"`
}

const (
	DefaultAddress        = ":8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultStoragePath    = "script.db"
)

func Default() *Config {
	return &Config{
		Server:  ServerConfig{Address: DefaultAddress, RequestTimeout: DefaultRequestTimeout.String()},
		Storage: StorageConfig{Path: DefaultStoragePath},
	}
}

type decodeFunc func([]byte, any) error

func decoderFor(format string) (decodeFunc, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "yaml", "yml":
		return yaml.Unmarshal, nil
	case "json":
		return func(data []byte, v any) error {
			return json.Unmarshal(data, v)
		}, nil
	case "bcl":
		return func(data []byte, v any) error {
			_, err := bcl.Unmarshal(data, v)
			return err
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Load reads a config file, choosing the decoder by extension.
func Load(path string) (*Config, error) {
	fn, err := decoderFor(filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(raw, fn)
}

// LoadFromString decodes raw text in the given format, useful for tests.
func LoadFromString(content, format string) (*Config, error) {
	fn, err := decoderFor(format)
	if err != nil {
		return nil, err
	}
	return decode([]byte(content), fn)
}

func decode(data []byte, fn decodeFunc) (*Config, error) {
	cfg := Default()
	if err := fn(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (cfg *Config) Validate() error {
	if cfg == nil {
		return ErrNilConfig
	}
	if cfg.Runtime.MaxLoops < 0 {
		return fmt.Errorf("runtime.max_loops must not be negative")
	}
	if cfg.Runtime.MaxCallDepth < 0 {
		return fmt.Errorf("runtime.max_call_depth must not be negative")
	}
	if cfg.Server.RequestTimeout != "" {
		if _, err := time.ParseDuration(cfg.Server.RequestTimeout); err != nil {
			return fmt.Errorf("server.request_timeout: %w", err)
		}
	}
	return nil
}

// Timeout returns the per-request timeout of the server.
func (s ServerConfig) Timeout() time.Duration {
	if d, err := time.ParseDuration(s.RequestTimeout); err == nil && d > 0 {
		return d
	}
	return DefaultRequestTimeout
}

// RuntimeSettings merges the configured values over the interpreter defaults.
func (cfg *Config) RuntimeSettings() script.RuntimeConfig {
	rc := script.DefaultRuntimeConfig()
	if cfg == nil {
		return rc
	}
	if cfg.Runtime.MaxLoops > 0 {
		rc.MaxLoops = cfg.Runtime.MaxLoops
	}
	if cfg.Runtime.MaxCallDepth > 0 {
		rc.MaxCallDepth = cfg.Runtime.MaxCallDepth
	}
	rc.ContinueOnErrors = cfg.Runtime.ContinueOnErrors
	rc.LogExecution = cfg.Runtime.LogExecution
	return rc
}

// Apply installs the runtime settings process-wide.
func (cfg *Config) Apply() {
	script.SetRuntimeConfig(cfg.RuntimeSettings())
}

// ContextOptions returns the options every interpreter context built from
// this config should carry.
func (cfg *Config) ContextOptions() []script.Option {
	if cfg == nil || len(cfg.Imports) == 0 {
		return nil
	}
	return []script.Option{script.WithImports(cfg.Imports...)}
}
