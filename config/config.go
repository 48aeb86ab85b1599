// Package config loads server configuration.
//
// Values are layered, each source overriding the previous one:
//   - built-in defaults
//   - a YAML file named by --config or FAST_STATIC_CONFIG
//   - the PORT environment variable
//   - command-line flags that were explicitly set
//   - a single positional port argument
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "FAST_STATIC_CONFIG"

// Config holds all application configuration.
type Config struct {
	// Port is the TCP port to listen on.
	Port int `yaml:"port"`

	// Root is the document root request paths are resolved against.
	Root string `yaml:"root"`

	// Index is the resource "/" redirects to.
	Index string `yaml:"index"`

	// CacheSize is the file cache arena size, e.g. "3MiB". "0" disables the cache.
	CacheSize string `yaml:"cache_size"`

	// StageBufferSize is the size of a single socket read.
	StageBufferSize int `yaml:"stage_buffer_size"`

	// FrameBudget caps the bytes handed to one write call.
	FrameBudget int `yaml:"frame_budget"`

	// MaxRetries is the number of write attempts per frame.
	MaxRetries int `yaml:"max_retries"`

	// WriteTimeout bounds each wait for a socket to become writable.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxRequestSize caps a request header block, e.g. "64KiB".
	MaxRequestSize string `yaml:"max_request_size"`

	// GCPercent sets GOGC when non-zero.
	GCPercent int `yaml:"gc_percent"`

	// MemoryLimit sets the runtime soft memory limit, e.g. "512MiB". "0" leaves it unset.
	MemoryLimit string `yaml:"memory_limit"`

	LogLevel string      `yaml:"log_level"`
	LogFile  string      `yaml:"log_file"`
	Env      Environment `yaml:"env"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:            8080,
		Root:            "resources",
		Index:           "index.html",
		CacheSize:       "3MiB",
		StageBufferSize: 1024,
		FrameBudget:     8096,
		MaxRetries:      5,
		WriteTimeout:    time.Second,
		MaxRequestSize:  "64KiB",
		MemoryLimit:     "0",
		LogLevel:        "info",
		Env:             Development,
	}
}

// Load builds the configuration from defaults, the optional config file,
// the environment and args (without the program name).
func Load(args []string) (*Config, error) {
	flagged := Default()
	var configPath string

	fs := pflag.NewFlagSet("fast-static", pflag.ContinueOnError)
	fs.StringVar(&configPath, "config", "", "path to a YAML config file (env "+ConfigEnv+")")
	fs.IntVarP(&flagged.Port, "port", "p", flagged.Port, "TCP port to listen on (env PORT)")
	fs.StringVar(&flagged.Root, "root", flagged.Root, "document root")
	fs.StringVar(&flagged.Index, "index", flagged.Index, "resource served for /")
	fs.StringVar(&flagged.CacheSize, "cache-size", flagged.CacheSize, "file cache size, 0 disables caching")
	fs.IntVar(&flagged.StageBufferSize, "stage-buffer-size", flagged.StageBufferSize, "bytes read per readiness event")
	fs.IntVar(&flagged.FrameBudget, "frame-budget", flagged.FrameBudget, "maximum bytes per write call")
	fs.IntVar(&flagged.MaxRetries, "max-retries", flagged.MaxRetries, "write attempts per frame")
	fs.DurationVar(&flagged.WriteTimeout, "write-timeout", flagged.WriteTimeout, "wait for a writable socket")
	fs.StringVar(&flagged.MaxRequestSize, "max-request-size", flagged.MaxRequestSize, "maximum request header size")
	fs.IntVar(&flagged.GCPercent, "gc-percent", flagged.GCPercent, "GOGC value, 0 keeps the runtime default")
	fs.StringVar(&flagged.MemoryLimit, "memory-limit", flagged.MemoryLimit, "runtime soft memory limit, 0 for none")
	fs.StringVar(&flagged.LogLevel, "log-level", flagged.LogLevel, "debug, info, warn or error")
	fs.StringVar(&flagged.LogFile, "log-file", flagged.LogFile, "also write logs to this file")
	fs.StringVar((*string)(&flagged.Env), "env", string(flagged.Env), "environment (development/production)")
	fs.SortFlags = false

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()

	if configPath == "" {
		configPath = os.Getenv(ConfigEnv)
	}
	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			return nil, err
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("PORT %q: %w", port, err)
		}
		cfg.Port = p
	}

	fs.Visit(func(f *pflag.Flag) {
		cfg.apply(flagged, f.Name)
	})

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		p, err := strconv.Atoi(rest[0])
		if err != nil {
			return nil, fmt.Errorf("port argument %q: %w", rest[0], err)
		}
		cfg.Port = p
	default:
		return nil, fmt.Errorf("unexpected arguments %q, usage: fast-static [flags] [port]", rest)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges a YAML file into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) apply(from *Config, flag string) {
	switch flag {
	case "port":
		c.Port = from.Port
	case "root":
		c.Root = from.Root
	case "index":
		c.Index = from.Index
	case "cache-size":
		c.CacheSize = from.CacheSize
	case "stage-buffer-size":
		c.StageBufferSize = from.StageBufferSize
	case "frame-budget":
		c.FrameBudget = from.FrameBudget
	case "max-retries":
		c.MaxRetries = from.MaxRetries
	case "write-timeout":
		c.WriteTimeout = from.WriteTimeout
	case "max-request-size":
		c.MaxRequestSize = from.MaxRequestSize
	case "gc-percent":
		c.GCPercent = from.GCPercent
	case "memory-limit":
		c.MemoryLimit = from.MemoryLimit
	case "log-level":
		c.LogLevel = from.LogLevel
	case "log-file":
		c.LogFile = from.LogFile
	case "env":
		c.Env = from.Env
	}
}

// CacheBytes returns the parsed cache size.
func (c *Config) CacheBytes() (int, error) {
	return parseSize("cache_size", c.CacheSize)
}

// MaxRequestBytes returns the parsed request header limit.
func (c *Config) MaxRequestBytes() (int, error) {
	return parseSize("max_request_size", c.MaxRequestSize)
}

// MemoryLimitBytes returns the parsed soft memory limit.
func (c *Config) MemoryLimitBytes() (int, error) {
	return parseSize("memory_limit", c.MemoryLimit)
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func parseSize(name, value string) (int, error) {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", name, value, err)
	}
	if n > 1<<40 {
		return 0, fmt.Errorf("%s %q: too large", name, value)
	}
	return int(n), nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Root == "" {
		errs = append(errs, errors.New("root must not be empty"))
	}
	if c.Index == "" {
		errs = append(errs, errors.New("index must not be empty"))
	}
	if _, err := c.CacheBytes(); err != nil {
		errs = append(errs, err)
	}
	if n, err := c.MaxRequestBytes(); err != nil {
		errs = append(errs, err)
	} else if n <= 0 {
		errs = append(errs, errors.New("max_request_size must be positive"))
	}
	if c.StageBufferSize <= 0 {
		errs = append(errs, errors.New("stage_buffer_size must be positive"))
	}
	if c.FrameBudget <= 0 {
		errs = append(errs, errors.New("frame_budget must be positive"))
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, errors.New("max_retries must be positive"))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, errors.New("write_timeout must be positive"))
	}
	if c.GCPercent < -1 {
		errs = append(errs, fmt.Errorf("gc_percent %d must be -1 or greater", c.GCPercent))
	}
	if _, err := c.MemoryLimitBytes(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Env {
	case Development, Production:
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}

	return errors.Join(errs...)
}
