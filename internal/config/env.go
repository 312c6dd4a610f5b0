package config

import (
	"fmt"
	"strconv"
	"time"
)

// envVar binds one ACTORFLOW_* variable to a config field.
type envVar struct {
	name string
	set  func(c *Config, v string) error
}

var envVars = []envVar{
	{"RUN_NAME", func(c *Config, v string) error { c.Run.Name = v; return nil }},
	{"RUN_SAMPLES", intVar(func(c *Config) *int { return &c.Run.Samples })},
	{"RUN_WIDTH", intVar(func(c *Config) *int { return &c.Run.Width })},
	{"RUN_EVERY", intVar(func(c *Config) *int { return &c.Run.Every })},
	{"RUN_GAIN", func(c *Config, v string) (err error) { c.Run.Gain, err = strconv.ParseFloat(v, 64); return }},
	{"RUN_CLIP", func(c *Config, v string) (err error) { c.Run.Clip, err = strconv.ParseFloat(v, 64); return }},
	{"RUN_CAPACITY", intVar(func(c *Config) *int { return &c.Run.Capacity })},
	{"RUN_TIMEOUT", func(c *Config, v string) (err error) { c.Run.Timeout, err = time.ParseDuration(v); return }},
	{"STORE_DRIVER", func(c *Config, v string) error { c.Store.Driver = v; return nil }},
	{"STORE_DSN", func(c *Config, v string) error { c.Store.DSN = v; return nil }},
	{"STORE_BATCH_SIZE", intVar(func(c *Config) *int { return &c.Store.BatchSize })},
	{"STORE_CODEC", func(c *Config, v string) error { c.Store.Codec = v; return nil }},
	{"STORE_COMPRESSION", func(c *Config, v string) error { c.Store.Compression = v; return nil }},
	{"TRANSCEIVER_ENABLED", func(c *Config, v string) (err error) { c.Transceiver.Enabled, err = strconv.ParseBool(v); return }},
	{"TRANSCEIVER_ADDR", func(c *Config, v string) error { c.Transceiver.Addr = v; return nil }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"LOG_VERBOSITY", intVar(func(c *Config) *int { return &c.Log.Verbosity })},
	{"LOG_DEVELOPMENT", func(c *Config, v string) (err error) { c.Log.Development, err = strconv.ParseBool(v); return }},
	{"METRICS_ADDR", func(c *Config, v string) error { c.Metrics.Addr = v; return nil }},
}

func intVar(field func(c *Config) *int) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.name)
		if !ok {
			continue
		}
		if err := ev.set(cfg, v); err != nil {
			return fmt.Errorf("%s%s=%q: %w", EnvPrefix, ev.name, v, err)
		}
	}
	return nil
}
