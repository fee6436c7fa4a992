package config

import (
	"fmt"
	"sync"
)

// Manager provides thread-safe access to live configuration.
type Manager interface {
	Get() *Config
	Set(cfg *Config)
	Reload(path string) error
}

// RWMutexManager provides thread-safe read-heavy config access using an
// RWMutex. The daily run, the policy engine, and every agent dispatcher
// read the config far more often than anyone reloads it.
type RWMutexManager struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewManager constructs a manager with an initial config.
func NewManager(initial *Config) *RWMutexManager {
	return &RWMutexManager{cfg: initial.Clone()}
}

// Get returns a cloned config snapshot under a shared lock.
//
// Returning a clone prevents shared mutable state from leaking across
// concurrent readers (orchestrator goroutines, the cron trigger, the
// observability reporter all read the same manager).
func (m *RWMutexManager) Get() *Config {
	if m == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Clone()
}

// Set updates the current config pointer under an exclusive lock.
func (m *RWMutexManager) Set(cfg *Config) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg.Clone()
}

// Reload re-reads the configuration from the path it was last loaded
// from (or from path, if given) and atomically swaps it into place.
func (m *RWMutexManager) Reload(path string) error {
	if m == nil {
		return fmt.Errorf("config: manager is nil")
	}
	if path == "" {
		path = m.path
	}
	if path == "" {
		return fmt.Errorf("config: reload path is required")
	}

	loaded, err := Load(path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = loaded.Clone()
	m.path = path
	return nil
}

// LoadManager loads the configuration at path and wraps it in a manager,
// remembering path for subsequent parameterless Reload calls.
func LoadManager(path string) (*RWMutexManager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := NewManager(cfg)
	m.path = path
	return m, nil
}

var _ Manager = (*RWMutexManager)(nil)
