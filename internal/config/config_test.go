package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name string, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileReturnsEmptyConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".gatewayd.toml")

	cfg, err := (&DefaultLoader{}).Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	require.Nil(t, cfg.API)
	require.Nil(t, cfg.Webhook)
	require.Equal(t, path, cfg.Path())
	require.Equal(t, DefaultStateFile, cfg.StateFileOrDefault())
}

func TestLoad_EmptyPath(t *testing.T) {
	t.Parallel()

	_, err := (&DefaultLoader{}).Load("  ")
	require.ErrorIs(t, err, ErrConfigLoadFailed)
}

func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, ".gatewayd.toml", `
[api]
addr = "127.0.0.1:9090"

[api.timeout]
shutdown = "3s"

[api.cors]
enable = true
allow_origins = ["http://localhost:3000"]

[webhook]
secret = "from-file"
list_requires_secret = true

[health]
interval = "15s"
timeout = "2s"
failure_threshold = 5
path = "/ready"
concurrency = 4

[state]
file = "pool.json"

[proxy]
timeout = "1m"
`)

	cfg, err := (&DefaultLoader{}).Load(path)
	require.NoError(t, err)
	require.Equal(t, path, cfg.Path())

	require.Equal(t, "127.0.0.1:9090", *cfg.API.Addr)
	require.Equal(t, Duration(3*time.Second), *cfg.API.Timeout.Shutdown)
	require.True(t, cfg.API.CORS.EnableOrDefault(false))
	require.Equal(t, []string{"http://localhost:3000"}, cfg.API.CORS.Origins)
	require.Equal(t, "from-file", *cfg.Webhook.Secret)
	require.True(t, *cfg.Webhook.ListRequiresSecret)
	require.Equal(t, Duration(15*time.Second), *cfg.Health.Interval)
	require.Equal(t, Duration(2*time.Second), *cfg.Health.Timeout)
	require.Equal(t, 5, *cfg.Health.FailureThreshold)
	require.Equal(t, "/ready", *cfg.Health.Path)
	require.Equal(t, 4, *cfg.Health.Concurrency)
	require.Equal(t, "pool.json", cfg.StateFileOrDefault())
	require.Equal(t, Duration(time.Minute), *cfg.Proxy.Timeout)
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "gatewayd.yaml", `
api:
  addr: "localhost:8080"
health:
  interval: 10s
  failure_threshold: 2
webhook:
  secret: yaml-secret
`)

	cfg, err := (&DefaultLoader{}).Load(path)
	require.NoError(t, err)
	require.Equal(t, "localhost:8080", *cfg.API.Addr)
	require.Equal(t, Duration(10*time.Second), *cfg.Health.Interval)
	require.Equal(t, 2, *cfg.Health.FailureThreshold)
	require.Equal(t, "yaml-secret", *cfg.Webhook.Secret)
}

func TestLoad_EmptyYAMLFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "gatewayd.yml", "")

	cfg, err := (&DefaultLoader{}).Load(path)
	require.NoError(t, err)
	require.Nil(t, cfg.Health)
}

func TestLoad_UnknownKeys(t *testing.T) {
	t.Parallel()

	t.Run("toml", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, ".gatewayd.toml", "[health]\nintervall = \"5s\"\n\n[servers]\nname = \"x\"\n")

		_, err := (&DefaultLoader{}).Load(path)
		require.ErrorIs(t, err, ErrConfigLoadFailed)
		require.Contains(t, err.Error(), "unknown configuration keys: health.intervall, servers")
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "gatewayd.yaml", "health:\n  intervall: 5s\n")

		_, err := (&DefaultLoader{}).Load(path)
		require.ErrorIs(t, err, ErrConfigLoadFailed)
		require.Contains(t, err.Error(), "intervall")
	})
}

func TestLoad_ValidationErrorsAreJoined(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, ".gatewayd.toml", `
[api]
addr = "nope"

[health]
failure_threshold = 0

[state]
file = ""
`)

	_, err := (&DefaultLoader{}).Load(path)
	require.ErrorIs(t, err, ErrConfigLoadFailed)
	require.Contains(t, err.Error(), "api configuration error")
	require.Contains(t, err.Error(), "health configuration error")
	require.Contains(t, err.Error(), "state configuration error")
}

func TestInit(t *testing.T) {
	t.Parallel()

	for _, name := range []string{".gatewayd.toml", "gatewayd.yaml"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), name)
			cfg := &Config{
				API:    &APIConfigSection{Addr: ptr("0.0.0.0:8080")},
				Health: &HealthConfigSection{Interval: dur(30 * time.Second), FailureThreshold: ptr(3)},
				State:  &StateConfigSection{File: ptr(DefaultStateFile)},
			}

			loader := &DefaultLoader{}
			require.NoError(t, loader.Init(path, cfg))

			loaded, err := loader.Load(path)
			require.NoError(t, err)
			require.Equal(t, "0.0.0.0:8080", *loaded.API.Addr)
			require.Equal(t, Duration(30*time.Second), *loaded.Health.Interval)
			require.Equal(t, 3, *loaded.Health.FailureThreshold)
			require.Equal(t, DefaultStateFile, loaded.StateFileOrDefault())

			err = loader.Init(path, cfg)
			require.ErrorIs(t, err, ErrConfigExists)
		})
	}
}

func TestInit_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".gatewayd.toml")
	err := (&DefaultLoader{}).Init(path, &Config{Proxy: &ProxyConfigSection{Timeout: dur(-time.Second)}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "refusing to write invalid config")
	require.NoFileExists(t, path)
}

func TestInit_EmptyPath(t *testing.T) {
	t.Parallel()

	require.EqualError(t, (&DefaultLoader{}).Init("", nil), "path cannot be empty")
}
