package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/newthinker/signalbot/internal/alert"
	"github.com/newthinker/signalbot/internal/core"
	"github.com/newthinker/signalbot/internal/indicator"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "SIGNALBOT"
	DateLayout = "2006-01-02"
)

type Config struct {
	Server     ServerConfig              `mapstructure:"server"`
	Log        LogConfig                 `mapstructure:"log"`
	Run        RunConfig                 `mapstructure:"run"`
	Indicators IndicatorConfig           `mapstructure:"indicators"`
	Collector  CollectorConfig           `mapstructure:"collector"`
	Notifiers  map[string]NotifierConfig `mapstructure:"notifiers"`
	Router     RouterConfig              `mapstructure:"router"`
	Storage    StorageConfig             `mapstructure:"storage"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
	Alerts     AlertsConfig              `mapstructure:"alerts"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RunConfig describes the default analysis run.
type RunConfig struct {
	Symbol          string        `mapstructure:"symbol"`
	Symbols         []string      `mapstructure:"symbols"` // offered by the API and refresh loop
	Start           string        `mapstructure:"start"`   // YYYY-MM-DD
	End             string        `mapstructure:"end"`     // YYYY-MM-DD, empty means today
	Interval        string        `mapstructure:"interval"`
	Strategy        string        `mapstructure:"strategy"`
	StartingBalance float64       `mapstructure:"starting_balance"`
	Tail            int           `mapstructure:"tail"`
	Refresh         time.Duration `mapstructure:"refresh"` // 0 disables the refresh loop
}

type IndicatorConfig struct {
	indicator.Params `mapstructure:",squash"`
	RSIOverbought    float64 `mapstructure:"rsi_overbought"`
}

type CollectorConfig struct {
	Provider string        `mapstructure:"provider"` // "yahoo" or "csv"
	Path     string        `mapstructure:"path"`     // csv directory or file
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type NotifierConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	BotToken string            `mapstructure:"bot_token"`
	ChatID   string            `mapstructure:"chat_id"`
	Endpoint string            `mapstructure:"endpoint"`
	URL      string            `mapstructure:"url"`
	Headers  map[string]string `mapstructure:"headers"`
}

type RouterConfig struct {
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

type StorageConfig struct {
	MaxReports int           `mapstructure:"max_reports"`
	Archive    ArchiveConfig `mapstructure:"archive"`
}

type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "", "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// AlertsConfig holds rules evaluated against every finished run.
type AlertsConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
	Rules    []alert.Rule  `mapstructure:"rules"`
}

// Load reads configuration from file on top of Defaults. A .env file in
// the working directory is loaded first; SIGNALBOT_* environment
// variables override file values. An empty path skips the file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	// Support environment variable overrides
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, val := range defaultKeys() {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("reading config: %w", err))
			}
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// defaultKeys registers scalar defaults with viper so that environment
// overrides apply even when the file omits a key.
func defaultKeys() map[string]any {
	d := Defaults()
	return map[string]any{
		"server.host":               d.Server.Host,
		"server.port":               d.Server.Port,
		"server.api_key":            d.Server.APIKey,
		"server.request_timeout":    d.Server.RequestTimeout,
		"log.level":                 d.Log.Level,
		"log.format":                d.Log.Format,
		"run.symbol":                d.Run.Symbol,
		"run.start":                 d.Run.Start,
		"run.end":                   d.Run.End,
		"run.interval":              d.Run.Interval,
		"run.strategy":              d.Run.Strategy,
		"run.starting_balance":      d.Run.StartingBalance,
		"run.tail":                  d.Run.Tail,
		"run.refresh":               d.Run.Refresh,
		"indicators.rsi_overbought": d.Indicators.RSIOverbought,
		"collector.provider":        d.Collector.Provider,
		"collector.path":            d.Collector.Path,
		"collector.timeout":         d.Collector.Timeout,
		"storage.max_reports":       d.Storage.MaxReports,
		"storage.archive.type":      d.Storage.Archive.Type,
		"storage.archive.path":      d.Storage.Archive.Path,
		"metrics.enabled":           d.Metrics.Enabled,
		"metrics.path":              d.Metrics.Path,
		"router.send_timeout":       d.Router.SendTimeout,
		"alerts.cooldown":           d.Alerts.Cooldown,
	}
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RequestTimeout: 60 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Run: RunConfig{
			Symbol:          "BTC-USD",
			Symbols:         []string{"BTC-USD", "ETH-USD", "AAPL", "TSLA"},
			Start:           "2023-01-01",
			End:             "2024-01-01",
			Interval:        "1d",
			Strategy:        "trend",
			StartingBalance: 10000,
			Tail:            10,
		},
		Indicators: IndicatorConfig{
			Params:        indicator.DefaultParams(),
			RSIOverbought: 70,
		},
		Collector: CollectorConfig{
			Provider: "yahoo",
			Timeout:  10 * time.Second,
		},
		Notifiers: map[string]NotifierConfig{},
		Router: RouterConfig{
			SendTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			MaxReports: 100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Alerts: AlertsConfig{
			Cooldown: time.Hour,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	// Run validation
	if c.Run.StartingBalance <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("starting_balance must be positive, got %f", c.Run.StartingBalance))
	}
	if c.Run.Tail < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("tail cannot be negative, got %d", c.Run.Tail))
	}
	if c.Run.Refresh < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("refresh cannot be negative, got %s", c.Run.Refresh))
	}
	if _, _, err := c.Run.Range(time.Now()); err != nil {
		return err
	}

	// Indicator validation
	if err := c.Indicators.Params.Validate(); err != nil {
		return err
	}
	if c.Indicators.RSIOverbought <= 0 || c.Indicators.RSIOverbought > 100 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("rsi_overbought must be in (0, 100], got %f", c.Indicators.RSIOverbought))
	}

	// Collector validation
	switch c.Collector.Provider {
	case "yahoo":
	case "csv":
		if c.Collector.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("collector path required when provider is csv"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown collector provider %q", c.Collector.Provider))
	}

	// Notifier validation - enabled notifiers need their credentials
	for name, n := range c.Notifiers {
		if !n.Enabled {
			continue
		}
		switch name {
		case "telegram":
			if n.BotToken == "" || n.ChatID == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("telegram bot_token and chat_id required when enabled"))
			}
		case "webhook":
			if n.URL == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("webhook url required when enabled"))
			}
		case "log":
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown notifier %q", name))
		}
	}

	// Alert rule validation
	if c.Alerts.Cooldown < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("alerts cooldown cannot be negative, got %s", c.Alerts.Cooldown))
	}
	for i := range c.Alerts.Rules {
		if err := c.Alerts.Rules[i].Validate(); err != nil {
			return err
		}
	}

	// Archive validation
	switch c.Storage.Archive.Type {
	case "":
	case "localfs":
		if c.Storage.Archive.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("archive path required when type is localfs"))
		}
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when archive type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", c.Storage.Archive.Type))
	}

	return nil
}

// Range parses the run window. An empty End means now.
func (r RunConfig) Range(now time.Time) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, r.Start)
	if err != nil {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("invalid run start %q: %w", r.Start, err))
	}

	end := now
	if r.End != "" {
		end, err = time.Parse(DateLayout, r.End)
		if err != nil {
			return time.Time{}, time.Time{}, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("invalid run end %q: %w", r.End, err))
		}
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("run start %s must be before end %s", start.Format(DateLayout), end.Format(DateLayout)))
	}
	return start, end, nil
}
