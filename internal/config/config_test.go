package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 0, cfg.Sweep.Workers)
	require.Equal(t, 15*time.Second, cfg.HTTP.Timeout())
	require.Equal(t, 10, cfg.HTTP.MaxRedirects)
	require.Zero(t, cfg.HTTP.PerHostRPS)
	require.Equal(t, 1, cfg.HTTP.PerHostBurst)
	require.True(t, cfg.Render.Enabled)
	require.Equal(t, "chromedp", cfg.Render.Engine)
	require.Equal(t, 30*time.Second, cfg.Render.Timeout())
	require.Equal(t, 500*time.Millisecond, cfg.Render.Settle())
	require.Equal(t, sweep.Dead, cfg.Classifier.Verdict())
	require.True(t, cfg.Classifier.HTTPErrorsAreFailures)
	require.Empty(t, cfg.Detector.Phrases)
	require.Empty(t, cfg.Notify.Topic)
	require.False(t, cfg.Logging.Development)
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	configYAML := `
sweep:
  workers: 6
http:
  timeout_seconds: 45
  user_agent: archive-cleaner/2.0
  max_redirects: 3
render:
  enabled: true
  engine: rod
  timeout_seconds: 12
  settle_millis: 0
detector:
  phrases: ["Page Gone", "no longer available"]
  tags: [h1, title]
classifier:
  fetch_error_verdict: alive
  http_errors_are_failures: false
notify:
  project_id: my-project
  topic: sweeps
logging:
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 6, cfg.Sweep.Workers)
	require.Equal(t, 45*time.Second, cfg.HTTP.Timeout())
	require.Equal(t, "archive-cleaner/2.0", cfg.HTTP.UserAgent)
	require.Equal(t, 3, cfg.HTTP.MaxRedirects)
	require.Equal(t, "rod", cfg.Render.Engine)
	require.Equal(t, 12*time.Second, cfg.Render.Timeout())
	require.Zero(t, cfg.Render.Settle())
	require.Equal(t, []string{"Page Gone", "no longer available"}, cfg.Detector.Phrases)
	require.Equal(t, []string{"h1", "title"}, cfg.Detector.Tags)
	require.Equal(t, sweep.Alive, cfg.Classifier.Verdict())
	require.False(t, cfg.Classifier.HTTPErrorsAreFailures)
	require.Equal(t, "my-project", cfg.Notify.ProjectID)
	require.Equal(t, "sweeps", cfg.Notify.Topic)
	require.True(t, cfg.Logging.Development)
}

func TestLoadWithBoundValues(t *testing.T) {
	t.Parallel()

	v := viper.New()
	v.Set("sweep.workers", 3)
	v.Set("logging.development", true)

	cfg, err := LoadWith(v, "")
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Sweep.Workers)
	require.True(t, cfg.Logging.Development)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SWEEPER_HTTP_TIMEOUT_SECONDS", "7")
	t.Setenv("SWEEPER_CLASSIFIER_FETCH_ERROR_VERDICT", "alive")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7*time.Second, cfg.HTTP.Timeout())
	require.Equal(t, sweep.Alive, cfg.Classifier.Verdict())
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			HTTP:       HTTPConfig{TimeoutSeconds: 10, MaxRedirects: 5},
			Render:     RenderConfig{Enabled: true, Engine: "chromedp", TimeoutSeconds: 10},
			Classifier: ClassifierConfig{FetchErrorVerdict: "dead"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "negative workers", mutate: func(c *Config) { c.Sweep.Workers = -1 }, wantErr: "sweep.workers"},
		{name: "zero http timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, wantErr: "http.timeout_seconds"},
		{name: "negative redirects", mutate: func(c *Config) { c.HTTP.MaxRedirects = -1 }, wantErr: "http.max_redirects"},
		{name: "negative per host rps", mutate: func(c *Config) { c.HTTP.PerHostRPS = -1 }, wantErr: "http.per_host_rps"},
		{name: "unknown engine", mutate: func(c *Config) { c.Render.Engine = "webkit" }, wantErr: "render.engine"},
		{name: "engine ignored when disabled", mutate: func(c *Config) {
			c.Render.Enabled = false
			c.Render.Engine = "webkit"
			c.Render.TimeoutSeconds = 0
		}},
		{name: "zero render timeout", mutate: func(c *Config) { c.Render.TimeoutSeconds = 0 }, wantErr: "render.timeout_seconds"},
		{name: "negative settle", mutate: func(c *Config) { c.Render.SettleMillis = -5 }, wantErr: "render.settle_millis"},
		{name: "bad verdict", mutate: func(c *Config) { c.Classifier.FetchErrorVerdict = "maybe" }, wantErr: "fetch_error_verdict"},
		{name: "verdict is case insensitive", mutate: func(c *Config) { c.Classifier.FetchErrorVerdict = "ALIVE" }},
		{name: "topic without project", mutate: func(c *Config) { c.Notify.Topic = "sweeps" }, wantErr: "notify.project_id"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
