package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrMissingConfiguration reports that a dot-path key was not set in the
// loaded configuration document and has no built-in default.
type ErrMissingConfiguration struct {
	Path string
}

func (e *ErrMissingConfiguration) Error() string {
	return fmt.Sprintf("config: required key %q is not set", e.Path)
}

// flattened lazily decodes the raw document a second time into a generic
// map so dot-path lookups (e.g. "reliability.quotas.youtube_daily_limit")
// can reach keys the typed Config tree doesn't expose a named field for,
// without hand-writing a getter per key.
type flattened map[string]interface{}

// loadFlattened re-decodes the document at path into a flat dot-path map.
// It is the secondary decode pass: BurntSushi/toml has no first-class
// dot-path API, so we decode once into *Config for typed access and once
// into map[string]interface{} for Lookup.
func loadFlattened(path string) (flattened, error) {
	var raw map[string]interface{}
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s for dot-path access: %w", path, err)
	}
	out := flattened{}
	flatten("", raw, out)
	return out, nil
}

func flatten(prefix string, in map[string]interface{}, out flattened) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// Document wraps a loaded Config with its dot-path view, giving callers
// both typed struct access and ad-hoc key lookups without re-parsing the
// file on every call.
type Document struct {
	Config *Config
	flat   flattened
}

// LoadDocument decodes path into the typed Config and, in a second pass,
// into its flattened dot-path view, and keeps both on the returned
// Document.
func LoadDocument(path string) (*Document, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	flat, err := loadFlattened(resolvedPathOrDefault(path))
	if err != nil {
		return nil, err
	}
	return &Document{Config: cfg, flat: flat}, nil
}

func resolvedPathOrDefault(path string) string {
	if path != "" {
		return path
	}
	for _, candidate := range defaultSearchPath {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return path
}

// Lookup returns the raw value at dotPath (e.g. "llm.default.model"), or
// ok=false if the key is absent from the document.
func (d *Document) Lookup(dotPath string) (interface{}, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.flat[strings.TrimSpace(dotPath)]
	return v, ok
}

// Required returns the raw value at dotPath, or ErrMissingConfiguration if
// it is absent. It mirrors the core's "get_required_var" helper: every
// hard-required setting funnels through one lookup path so a missing key
// fails at startup instead of as a nil deref deep in a dispatcher.
func (d *Document) Required(dotPath string) (interface{}, error) {
	v, ok := d.Lookup(dotPath)
	if !ok {
		return nil, &ErrMissingConfiguration{Path: dotPath}
	}
	return v, nil
}

// OptionalString returns the string value at dotPath, or fallback if the
// key is absent or not a string.
func (d *Document) OptionalString(dotPath, fallback string) string {
	v, ok := d.Lookup(dotPath)
	if !ok {
		return fallback
	}
	s, ok := v.(string)
	if !ok {
		return fallback
	}
	return s
}

// OptionalInt returns the integer value at dotPath, or fallback if the
// key is absent or not a whole number.
func (d *Document) OptionalInt(dotPath string, fallback int) int {
	v, ok := d.Lookup(dotPath)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	default:
		return fallback
	}
}

// OptionalFloat returns the float value at dotPath, or fallback if the key
// is absent or not numeric.
func (d *Document) OptionalFloat(dotPath string, fallback float64) float64 {
	v, ok := d.Lookup(dotPath)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return fallback
	}
}
