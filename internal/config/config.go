// Package config loads voyage settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// VOYAGE_* environment variables (a .env file may supply them), then
// whatever command-line flags the caller applies on top. Paths left empty
// are derived from DataDir by Resolve.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvConfig           = "VOYAGE_CONFIG"
	EnvDataDir          = "VOYAGE_DATA_DIR"
	EnvDatabase         = "VOYAGE_DB"
	EnvAudioDir         = "VOYAGE_AUDIO_DIR"
	EnvBlobDir          = "VOYAGE_BLOB_DIR"
	EnvCacheSize        = "VOYAGE_CACHE_SIZE"
	EnvCacheTTL         = "VOYAGE_CACHE_TTL"
	EnvLogLevel         = "VOYAGE_LOG_LEVEL"
	EnvLogFormat        = "VOYAGE_LOG_FORMAT"
	EnvMetricsTextfile  = "VOYAGE_METRICS_TEXTFILE"
	EnvAutoInbox        = "VOYAGE_AUTOINBOX"
	EnvAutoInboxEvery   = "VOYAGE_AUTOINBOX_INTERVAL"
	EnvAutoInboxSenders = "VOYAGE_AUTOINBOX_SENDERS"
)

// Config holds every setting the CLI needs to assemble a collection.
type Config struct {
	DataDir         string        `yaml:"data_dir"`
	Database        string        `yaml:"database"`
	AudioDir        string        `yaml:"audio_dir"`
	BlobDir         string        `yaml:"blob_dir"`
	CacheSize       int           `yaml:"cache_size"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	MetricsTextfile string        `yaml:"metrics_textfile"`
	AutoInbox       AutoInbox     `yaml:"autoinbox"`
}

// AutoInbox configures the background inbox job.
type AutoInbox struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	Senders  []string      `yaml:"senders"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DataDir:   "voyage-data",
		CacheSize: 128,
		CacheTTL:  10 * time.Minute,
		LogLevel:  "info",
		LogFormat: "text",
		AutoInbox: AutoInbox{Interval: time.Hour},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. The result is validated but not
// resolved; callers apply flag overrides and then call Resolve.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv exports the variables in a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.DataDir, EnvDataDir)
	setString(&c.Database, EnvDatabase)
	setString(&c.AudioDir, EnvAudioDir)
	setString(&c.BlobDir, EnvBlobDir)
	setString(&c.LogLevel, EnvLogLevel)
	setString(&c.LogFormat, EnvLogFormat)
	setString(&c.MetricsTextfile, EnvMetricsTextfile)

	if v := os.Getenv(EnvCacheSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", EnvCacheSize, v)
		}
		c.CacheSize = n
	}
	if err := setDuration(&c.CacheTTL, EnvCacheTTL); err != nil {
		return err
	}
	if v := os.Getenv(EnvAutoInbox); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", EnvAutoInbox, v)
		}
		c.AutoInbox.Enabled = b
	}
	if err := setDuration(&c.AutoInbox.Interval, EnvAutoInboxEvery); err != nil {
		return err
	}
	if v := os.Getenv(EnvAutoInboxSenders); v != "" {
		c.AutoInbox.Senders = splitList(v)
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format: invalid value %q, allowed: text, json", c.LogFormat)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size: must not be negative, got %d", c.CacheSize)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl: must not be negative, got %s", c.CacheTTL)
	}
	if c.AutoInbox.Interval <= 0 {
		return fmt.Errorf("autoinbox.interval: must be positive, got %s", c.AutoInbox.Interval)
	}
	return nil
}

// Resolve fills Database, AudioDir and BlobDir from DataDir when unset.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = Default().DataDir
	}
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, "voyage.db")
	}
	if c.AudioDir == "" {
		c.AudioDir = filepath.Join(c.DataDir, "audio")
	}
	if c.BlobDir == "" {
		c.BlobDir = filepath.Join(c.DataDir, "blobs")
	}
}

// SetupLogger builds the process logger and installs it as the slog
// default. verbose forces debug level.
func SetupLogger(cfg *Config, w io.Writer, verbose bool) *slog.Logger {
	level, err := ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid level %q, allowed: debug, info, warn, error", level)
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q (use Go syntax: 30s, 1h)", key, v)
	}
	*dst = d
	return nil
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
