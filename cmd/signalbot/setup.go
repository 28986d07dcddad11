package main

import (
	"fmt"
	"time"

	"github.com/newthinker/signalbot/internal/app"
	"github.com/newthinker/signalbot/internal/collector"
	"github.com/newthinker/signalbot/internal/collector/csvfile"
	"github.com/newthinker/signalbot/internal/collector/yahoo"
	"github.com/newthinker/signalbot/internal/config"
	"github.com/newthinker/signalbot/internal/logger"
	"github.com/newthinker/signalbot/internal/metrics"
	"github.com/newthinker/signalbot/internal/notifier"
	"github.com/newthinker/signalbot/internal/notifier/logsink"
	"github.com/newthinker/signalbot/internal/notifier/telegram"
	"github.com/newthinker/signalbot/internal/notifier/webhook"
	"github.com/newthinker/signalbot/internal/storage/archive"
	"github.com/newthinker/signalbot/internal/strategy"
	"github.com/newthinker/signalbot/internal/strategy/ma_crossover"
	"github.com/newthinker/signalbot/internal/strategy/trend"
	"go.uber.org/zap"
)

// loadConfig reads and validates the configuration. Without --config the
// defaults apply, still overridable from the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	opts := logger.Options{
		Development: debug,
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
	}
	if debug {
		opts.Level = "debug"
	}
	return logger.NewWithOptions(opts)
}

// runtime is everything a command needs, wired from the config
type runtime struct {
	app      *app.App
	metrics  *metrics.Registry
	archiver *archive.ReportArchiver
}

func setup(cfg *config.Config, log *zap.Logger) (*runtime, error) {
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, err
	}
	rt := &runtime{app: a}

	// Collectors
	collectorCfg := collector.Config{
		Path:    cfg.Collector.Path,
		BaseURL: cfg.Collector.BaseURL,
		Timeout: cfg.Collector.Timeout,
	}
	switch cfg.Collector.Provider {
	case "csv":
		c := csvfile.New(cfg.Collector.Path)
		if err := c.Init(collectorCfg); err != nil {
			return nil, fmt.Errorf("csv collector: %w", err)
		}
		a.RegisterCollector(c)
	default:
		c := yahoo.New()
		if err := c.Init(collectorCfg); err != nil {
			return nil, fmt.Errorf("yahoo collector: %w", err)
		}
		a.RegisterCollector(c)
	}

	// Strategies
	tr := trend.New(cfg.Indicators.RSIOverbought)
	if err := tr.Init(strategy.Config{
		Enabled: true,
		Params:  map[string]any{"rsi_overbought": cfg.Indicators.RSIOverbought},
	}); err != nil {
		return nil, fmt.Errorf("trend strategy: %w", err)
	}
	a.RegisterStrategy(tr)
	a.RegisterStrategy(ma_crossover.New(0))

	// Notifiers
	for name, nc := range cfg.Notifiers {
		if !nc.Enabled {
			continue
		}
		n, params, err := newNotifier(name, nc, cfg.Router.SendTimeout, log)
		if err != nil {
			return nil, err
		}
		if err := n.Init(notifier.Config{Type: name, Params: params}); err != nil {
			return nil, fmt.Errorf("notifier %s: %w", name, err)
		}
		if err := a.RegisterNotifier(n); err != nil {
			return nil, err
		}
		log.Info("notifier enabled", zap.String("notifier", name))
	}

	a.SetRules(cfg.Alerts.Rules, cfg.Alerts.Cooldown)

	// Archive
	storage, err := archive.New(archive.Config{
		Type: cfg.Storage.Archive.Type,
		Path: cfg.Storage.Archive.Path,
		S3: archive.S3Config{
			Bucket:    cfg.Storage.Archive.S3.Bucket,
			Endpoint:  cfg.Storage.Archive.S3.Endpoint,
			Region:    cfg.Storage.Archive.S3.Region,
			AccessKey: cfg.Storage.Archive.S3.AccessKey,
			SecretKey: cfg.Storage.Archive.S3.SecretKey,
			Prefix:    cfg.Storage.Archive.S3.Prefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	if storage != nil {
		rt.archiver = archive.NewReportArchiver(storage, log)
		a.SetArchiver(rt.archiver)
	}

	// Metrics
	if cfg.Metrics.Enabled {
		rt.metrics = metrics.NewRegistry()
		a.SetMetrics(rt.metrics)
	}

	return rt, nil
}

// newNotifier builds the named notifier and its Init params. sendTimeout
// is the router's per-alert budget; Telegram's client cannot take a
// context, so it gets the budget as its request timeout.
func newNotifier(name string, nc config.NotifierConfig, sendTimeout time.Duration, log *zap.Logger) (notifier.Notifier, map[string]any, error) {
	switch name {
	case "telegram":
		return telegram.New("", 0), map[string]any{
			"bot_token": nc.BotToken,
			"chat_id":   nc.ChatID,
			"endpoint":  nc.Endpoint,
			"timeout":   sendTimeout,
		}, nil
	case "webhook":
		return webhook.New("", nil), map[string]any{
			"url":     nc.URL,
			"headers": nc.Headers,
		}, nil
	case "log":
		return logsink.New(log), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown notifier %q", name)
}
