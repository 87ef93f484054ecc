package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ethereum-optimism/infra/op-browsertest/session"
)

// Resolver maps a discovered test file to the procedure that runs it. found is
// false when the resolver does not know the test.
type Resolver interface {
	Resolve(suite, id, path string) (proc session.Procedure, found bool, err error)
}

// Catalog resolves tests to in-process procedures registered by ID. A key of
// the form "suite/id" takes precedence over a bare "id".
type Catalog struct {
	mu    sync.RWMutex
	procs map[string]session.Procedure
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{procs: make(map[string]session.Procedure)}
}

// Register adds proc under key. The first registration of a key wins.
func (c *Catalog) Register(key string, proc session.Procedure) bool {
	if key == "" || proc == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.procs[key]; exists {
		return false
	}
	c.procs[key] = proc
	return true
}

// Len returns the number of registered procedures
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.procs)
}

// Resolve implements Resolver
func (c *Catalog) Resolve(suite, id, path string) (session.Procedure, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if proc, ok := c.procs[suite+"/"+id]; ok {
		return proc, true, nil
	}
	proc, ok := c.procs[id]
	return proc, ok, nil
}

// ErrScriptFailed is returned by script procedures whose body evaluates to false
var ErrScriptFailed = errors.New("script returned false")

// ScriptResolver resolves every file to a procedure that runs the file body in
// the remote browser.
type ScriptResolver struct{}

// Resolve implements Resolver
func (ScriptResolver) Resolve(suite, id, path string) (session.Procedure, bool, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("reading script: %w", err)
	}
	script := string(body)
	return func(ctx context.Context, s *session.Session) error {
		v, err := s.Execute(ctx, script)
		if err != nil {
			return err
		}
		if b, ok := v.(bool); ok && !b {
			return ErrScriptFailed
		}
		return nil
	}, true, nil
}

type chain []Resolver

// Chain returns a resolver that asks each resolver in turn and uses the first
// one that knows the test.
func Chain(resolvers ...Resolver) Resolver {
	return chain(resolvers)
}

func (c chain) Resolve(suite, id, path string) (session.Procedure, bool, error) {
	for _, r := range c {
		proc, found, err := r.Resolve(suite, id, path)
		if err != nil {
			return nil, false, err
		}
		if found {
			return proc, true, nil
		}
	}
	return nil, false, nil
}
