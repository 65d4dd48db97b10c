package config

import (
	"sync/atomic"
)

// Holder provides atomic access to the current Config and supports
// reloading it from the same YAML path (e.g. on SIGHUP). A reload that
// fails validation leaves the previous config in place.
type Holder struct {
	current  atomic.Pointer[Config]
	yamlPath string
}

// NewHolder wraps an already-loaded config.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	h := &Holder{yamlPath: yamlPath}
	h.current.Store(cfg)
	return h
}

// Get returns the current config snapshot.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// Reload re-runs the full load hierarchy from the holder's YAML path and
// swaps in the new config if it validates.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.yamlPath)
	if err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}
