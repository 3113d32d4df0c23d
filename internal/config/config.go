// Package config loads and validates sweeper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/soft404-sweeper/internal/sweep"
)

// EnvPrefix prefixes every environment override, e.g. SWEEPER_HTTP_TIMEOUT_SECONDS.
const EnvPrefix = "SWEEPER"

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Sweep      SweepConfig      `mapstructure:"sweep"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Render     RenderConfig     `mapstructure:"render"`
	Detector   DetectorConfig   `mapstructure:"detector"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SweepConfig governs partitioning.
type SweepConfig struct {
	// Workers is the number of parallel chunks; 0 means one per CPU.
	Workers int `mapstructure:"workers"`
}

// HTTPConfig configures the plain GET.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxRedirects   int    `mapstructure:"max_redirects"`
	// PerHostRPS caps requests per second to one host across all workers;
	// zero disables the limit.
	PerHostRPS   float64 `mapstructure:"per_host_rps"`
	PerHostBurst int     `mapstructure:"per_host_burst"`
}

// RenderConfig configures the headless render fallback.
type RenderConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Engine         string `mapstructure:"engine"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	SettleMillis   int    `mapstructure:"settle_millis"`
	ExecPath       string `mapstructure:"exec_path"`
}

// DetectorConfig overrides the soft-404 vocabulary.
type DetectorConfig struct {
	Phrases []string `mapstructure:"phrases"`
	Tags    []string `mapstructure:"tags"`
}

// ClassifierConfig sets the fetch failure policy.
type ClassifierConfig struct {
	FetchErrorVerdict     string `mapstructure:"fetch_error_verdict"`
	HTTPErrorsAreFailures bool   `mapstructure:"http_errors_are_failures"`
}

// NotifyConfig holds the Pub/Sub target for run summaries. An empty topic
// disables notifications.
type NotifyConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith builds a Config using v, which may already have command-line flags
// bound to it.
func LoadWith(v *viper.Viper, path string) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sweep.workers", 0)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "soft404-sweeper/0.1")
	v.SetDefault("http.max_redirects", 10)
	v.SetDefault("http.per_host_rps", 0)
	v.SetDefault("http.per_host_burst", 1)
	v.SetDefault("render.enabled", true)
	v.SetDefault("render.engine", "chromedp")
	v.SetDefault("render.timeout_seconds", 30)
	v.SetDefault("render.settle_millis", 500)
	v.SetDefault("render.exec_path", "")
	v.SetDefault("detector.phrases", []string{})
	v.SetDefault("detector.tags", []string{})
	v.SetDefault("classifier.fetch_error_verdict", "dead")
	v.SetDefault("classifier.http_errors_are_failures", true)
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "")
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Sweep.Workers < 0 {
		return fmt.Errorf("sweep.workers must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRedirects < 0 {
		return fmt.Errorf("http.max_redirects must be >= 0")
	}
	if c.HTTP.PerHostRPS < 0 {
		return fmt.Errorf("http.per_host_rps must be >= 0")
	}
	if c.HTTP.PerHostBurst < 0 {
		return fmt.Errorf("http.per_host_burst must be >= 0")
	}
	if c.Render.Enabled {
		switch strings.ToLower(c.Render.Engine) {
		case "chromedp", "rod":
		default:
			return fmt.Errorf("render.engine must be chromedp or rod, got %q", c.Render.Engine)
		}
		if c.Render.TimeoutSeconds <= 0 {
			return fmt.Errorf("render.timeout_seconds must be > 0 when render is enabled")
		}
	}
	if c.Render.SettleMillis < 0 {
		return fmt.Errorf("render.settle_millis must be >= 0")
	}
	if _, err := parseVerdict(c.Classifier.FetchErrorVerdict); err != nil {
		return err
	}
	if c.Notify.Topic != "" && c.Notify.ProjectID == "" {
		return fmt.Errorf("notify.project_id must be set when notify.topic is set")
	}
	return nil
}

// Timeout is the per-request budget for the plain GET.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout is the navigation budget for one render.
func (c RenderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Settle is the pause after the page is ready.
func (c RenderConfig) Settle() time.Duration {
	return time.Duration(c.SettleMillis) * time.Millisecond
}

// Verdict returns the verdict applied to failed fetches.
func (c ClassifierConfig) Verdict() sweep.Verdict {
	v, err := parseVerdict(c.FetchErrorVerdict)
	if err != nil {
		return sweep.Dead
	}
	return v
}

func parseVerdict(raw string) (sweep.Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "dead":
		return sweep.Dead, nil
	case "alive":
		return sweep.Alive, nil
	default:
		return "", fmt.Errorf("classifier.fetch_error_verdict must be dead or alive, got %q", raw)
	}
}
