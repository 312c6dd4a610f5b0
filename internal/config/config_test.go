package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envOf(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().WithEnvFiles().WithLookup(noEnv).Load("")
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "run.yaml", `
run:
  name: bench
  samples: 500
  every: 5
  timeout: 1m30s
store:
  driver: sqlite
  dsn: ":memory:"
transceiver:
  enabled: true
`)
	cfg, err := NewLoader().WithEnvFiles().WithLookup(noEnv).Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bench", cfg.Run.Name)
	assert.Equal(t, 500, cfg.Run.Samples)
	assert.Equal(t, 5, cfg.Run.Every)
	assert.Equal(t, 90*time.Second, cfg.Run.Timeout)
	assert.Equal(t, 8, cfg.Run.Width, "unset fields keep their defaults")
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.True(t, cfg.Transceiver.Enabled)
	assert.Equal(t, "127.0.0.1:0", cfg.Transceiver.Addr)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "run.yaml", "run:\n  samples: 10\n  every: 3\n")
	envFile := writeFile(t, ".env", "ACTORFLOW_RUN_SAMPLES=20\nACTORFLOW_RUN_GAIN=0.5\n")

	cfg, err := NewLoader().
		WithEnvFiles(envFile, filepath.Join(t.TempDir(), "missing.env")).
		WithLookup(envOf(map[string]string{"ACTORFLOW_RUN_SAMPLES": "30", "ACTORFLOW_LOG_LEVEL": "debug"})).
		Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Run.Samples, "environment beats .env and YAML")
	assert.Equal(t, 0.5, cfg.Run.Gain, ".env beats defaults")
	assert.Equal(t, 3, cfg.Run.Every, "YAML beats defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    "run:\n  sampels: 3\n",
			wantErr: "field sampels not found",
		},
		{
			name:    "bad env number",
			env:     map[string]string{"ACTORFLOW_RUN_SAMPLES": "many"},
			wantErr: `ACTORFLOW_RUN_SAMPLES="many"`,
		},
		{
			name:    "bad driver",
			env:     map[string]string{"ACTORFLOW_STORE_DRIVER": "redis"},
			wantErr: "store.driver",
		},
		{
			name:    "sqlite without dsn",
			env:     map[string]string{"ACTORFLOW_STORE_DRIVER": "sqlite"},
			wantErr: "store driver sqlite needs a dsn",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"ACTORFLOW_LOG_LEVEL": "loud"},
			wantErr: "log.level",
		},
		{
			name:    "bad metrics addr",
			env:     map[string]string{"ACTORFLOW_METRICS_ADDR": "nowhere"},
			wantErr: "metrics.addr",
		},
		{
			name:    "zero samples",
			yaml:    "run:\n  samples: 0\n",
			wantErr: "run.samples",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "run.yaml", tt.yaml)
			}
			_, err := NewLoader().WithEnvFiles().WithLookup(envOf(tt.env)).Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader().WithEnvFiles().WithLookup(noEnv).Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteParseRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = DriverPostgres
	cfg.Store.DSN = "postgres://localhost/actorflow"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, cfg))
	assert.Contains(t, buf.String(), "timeout: 30s")

	got, err := Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
