// Package config loads the run configuration of the actorflow CLI from a
// YAML file, an optional .env file and ACTORFLOW_* environment variables,
// in increasing order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/flowgraph/actorflow/pkg/validation"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ACTORFLOW_"

// Store drivers
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration of one CLI run
type Config struct {
	Run         RunConfig         `yaml:"run"`
	Store       StoreConfig       `yaml:"store"`
	Transceiver TransceiverConfig `yaml:"transceiver"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// RunConfig shapes the demo pipeline
type RunConfig struct {
	Name string `yaml:"name" validate:"required,actor_name"`
	// Samples is the number of values the source emits.
	Samples int `yaml:"samples" validate:"gte=1"`
	// Width is the length of every emitted vector.
	Width int `yaml:"width" validate:"gte=1,lte=4096"`
	// Every keeps one value out of Every.
	Every int     `yaml:"every" validate:"gte=1"`
	Gain  float64 `yaml:"gain"`
	// Clip bounds the amplified values to [-Clip, Clip]. Zero disables it.
	Clip float64 `yaml:"clip" validate:"gte=0"`
	// Capacity is the default capacity of bounded links.
	Capacity int           `yaml:"capacity" validate:"gte=1"`
	Timeout  time.Duration `yaml:"timeout" validate:"gte=0"`
}

// StoreConfig selects where recorded samples go
type StoreConfig struct {
	Driver    string `yaml:"driver" validate:"oneof=none memory sqlite postgres"`
	DSN       string `yaml:"dsn"`
	BatchSize int    `yaml:"batch_size" validate:"gte=1,lte=10000"`
	// Codec and Compression configure the sample payload encoding.
	Codec       string `yaml:"codec" validate:"oneof=json msgpack"`
	Compression string `yaml:"compression" validate:"oneof=none gzip zstd"`
}

// TransceiverConfig routes the pipeline through a loopback TCP link
type TransceiverConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr" validate:"listen_addr"`
}

// LogConfig configures the zap backend
type LogConfig struct {
	Level       string `yaml:"level" validate:"log_level"`
	Verbosity   int    `yaml:"verbosity" validate:"gte=0,lte=3"`
	Development bool   `yaml:"development"`
}

// MetricsConfig configures the /metrics endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Name:     "demo",
			Samples:  100,
			Width:    8,
			Every:    2,
			Gain:     2,
			Capacity: 1,
			Timeout:  30 * time.Second,
		},
		Store: StoreConfig{
			Driver:      DriverMemory,
			BatchSize:   16,
			Codec:       "msgpack",
			Compression: "zstd",
		},
		Transceiver: TransceiverConfig{Addr: "127.0.0.1:0"},
		Log:         LogConfig{Level: "info"},
	}
}

// Validate checks cross-field rules not expressible as tags
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %s needs a dsn", c.Store.Driver)
		}
	}
	return nil
}

// Loader assembles a Config
type Loader struct {
	envFiles []string
	lookup   func(string) (string, bool)
}

// NewLoader creates a loader reading ".env" and the process environment
func NewLoader() *Loader {
	return &Loader{envFiles: []string{".env"}, lookup: os.LookupEnv}
}

// WithEnvFiles replaces the dotenv files to load. Missing files are skipped.
func (l *Loader) WithEnvFiles(files ...string) *Loader {
	l.envFiles = files
	return l
}

// WithLookup replaces the environment lookup, mainly for tests
func (l *Loader) WithLookup(lookup func(string) (string, bool)) *Loader {
	l.lookup = lookup
	return l
}

// Load builds the configuration from defaults, the YAML file at path (if
// not empty), dotenv files and the environment, then validates it.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := decode(bytes.NewReader(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	env, err := l.dotenv()
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := l.lookup(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// dotenv reads the dotenv files without touching the process environment.
// The real environment wins over them.
func (l *Loader) dotenv() (map[string]string, error) {
	out := make(map[string]string)
	for _, file := range l.envFiles {
		vars, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read env file %s: %w", file, err)
		}
		for k, v := range vars {
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
	}
	return out, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Parse decodes YAML over the defaults and validates the result
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// Write encodes cfg as YAML
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}
