package notifier

import "context"

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Notifier delivers plain-text trade alerts
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single alert message
	Send(ctx context.Context, message string) error
}

// StringParam reads a string parameter, accepting numbers for ids like chat_id.
func StringParam(params map[string]any, key string) (string, bool) {
	switch v := params[key].(type) {
	case string:
		return v, true
	case int:
		return fmtInt(int64(v)), true
	case int64:
		return fmtInt(v), true
	case float64:
		return fmtInt(int64(v)), true
	}
	return "", false
}
