package config

import (
	"maps"
	"time"
)

// Config is a read-only typed view over node params.
type Config struct {
	data map[string]any
}

// New wraps data. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = map[string]any{}
	}
	return Config{data: data}
}

// lookup converts the value under key with conv, returning def when the key
// is absent or conv rejects the value.
func lookup[T any](c Config, key string, def T, conv func(any) (T, bool)) T {
	v, ok := c.data[key]
	if !ok {
		return def
	}
	if out, ok := conv(v); ok {
		return out
	}
	return def
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// asInt accepts whole floats since JSON decodes every number as float64.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// asDuration reads duration strings, time.Duration values, and bare numbers
// as seconds.
func asDuration(v any) (time.Duration, bool) {
	switch d := v.(type) {
	case time.Duration:
		return d, true
	case string:
		parsed, err := time.ParseDuration(d)
		return parsed, err == nil
	}
	if secs, ok := asFloat(v); ok {
		return time.Duration(secs * float64(time.Second)), true
	}
	return 0, false
}

// String returns the string under key, or def.
func (c Config) String(key, def string) string { return lookup(c, key, def, asString) }

// Int returns the integer under key, or def.
func (c Config) Int(key string, def int) int { return lookup(c, key, def, asInt) }

// Float returns the number under key, or def.
func (c Config) Float(key string, def float64) float64 { return lookup(c, key, def, asFloat) }

// Duration returns the duration under key, or def.
func (c Config) Duration(key string, def time.Duration) time.Duration {
	return lookup(c, key, def, asDuration)
}

// Any returns the raw value under key, or def.
func (c Config) Any(key string, def any) any {
	return lookup(c, key, def, func(v any) (any, bool) { return v, true })
}

// Sub returns the mapping under key. ok is false when key is absent or does
// not hold a mapping, in which case the Config is empty.
func (c Config) Sub(key string) (sub Config, ok bool) {
	m, ok := c.data[key].(map[string]any)
	return New(m), ok
}

// Maps returns the list of mappings under key, such as batch params.
// Elements that are not mappings are skipped.
func (c Config) Maps(key string) []map[string]any {
	list, _ := c.data[key].([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Raw returns the wrapped map. Callers must not modify it.
func (c Config) Raw() map[string]any { return c.data }

// Merge returns c overlaid with overlay. Neither input is modified.
func (c Config) Merge(overlay map[string]any) Config {
	merged := make(map[string]any, len(c.data)+len(overlay))
	maps.Copy(merged, c.data)
	maps.Copy(merged, overlay)
	return Config{data: merged}
}
