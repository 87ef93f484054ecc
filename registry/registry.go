package registry

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-browsertest/session"
)

// Registry holds the named extension operations that are attached to every
// session handle. Names are unique and the first registration wins.
type Registry struct {
	config Config
	names  []string
	ops    map[string]session.Operation
	mu     sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log log.Logger
	// PluginPattern selects plugin files in Load, DefaultPluginPattern when empty
	PluginPattern string
}

// NewRegistry creates an empty registry
func NewRegistry(cfg Config) *Registry {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return &Registry{
		config: cfg,
		ops:    make(map[string]session.Operation),
	}
}

// Load builds a registry from plugin directories in priority order, followed by
// the built-in operations. Empty directory paths are skipped.
func Load(cfg Config, dirs ...string) (*Registry, error) {
	r := NewRegistry(cfg)
	pattern := cfg.PluginPattern
	if pattern == "" {
		pattern = DefaultPluginPattern
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		n, err := r.LoadDir(dir, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to load plugins from %s: %w", dir, err)
		}
		r.config.Log.Debug("Loaded plugin directory", "dir", dir, "registered", n)
	}
	r.RegisterBuiltins()
	r.config.Log.Debug("Registry loaded", "operations", len(r.names))
	return r, nil
}

// Register adds op under name. It returns false without touching the registry
// when the name is already taken, empty, or op is nil.
func (r *Registry) Register(name string, op session.Operation) bool {
	if name == "" || op == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ops[name]; exists {
		r.config.Log.Debug("Operation already registered, skipping", "name", name)
		return false
	}
	r.ops[name] = op
	r.names = append(r.names, name)
	return true
}

// Resolve returns the operation registered under name
func (r *Registry) Resolve(name string) (session.Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Attach wraps conn in a session handle carrying its own bound copy of every
// registered operation.
func (r *Registry) Attach(conn session.Conn) *session.Session {
	r.mu.RLock()
	ops := make(map[string]session.Operation, len(r.ops))
	for name, op := range r.ops {
		ops[name] = op
	}
	r.mu.RUnlock()
	return session.New(conn, ops)
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}
