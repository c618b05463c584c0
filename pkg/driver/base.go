package driver

import (
	"log/slog"
	"maps"
)

// Base carries the constructor arguments common to all drivers.
type Base struct {
	SystemName string
	HostName   string
	User       string
	Passwd     string
	Parameters map[string]any
}

// Config is the input of a driver constructor.
type Config = Base

// NewBase copies cfg, including its parameters map.
func NewBase(cfg Config) Base {
	cfg.Parameters = maps.Clone(cfg.Parameters)
	if cfg.Parameters == nil {
		cfg.Parameters = map[string]any{}
	}
	return cfg
}

// LogValue implements slog.LogValuer. The password is never logged.
func (b Base) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", b.SystemName),
		slog.String("host_name", b.HostName),
		slog.String("user", b.User),
		slog.Any("parameters", b.Parameters),
	)
}

// Param returns the string parameter named key, or "" when absent.
func (b Base) Param(key string) string {
	s, _ := b.Parameters[key].(string)
	return s
}

// Int returns the numeric parameter named key, or def when absent.
func (b Base) Int(key string, def int) int {
	return IntParam(b.Parameters, key, def)
}

// IntParam reads a numeric value from a decoded parameters map, accepting the
// integer and float kinds JSON and YAML decoders produce.
func IntParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
