// Package sessiontest provides in-memory session transports for tests.
package sessiontest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// Dialer hands out Conns and keeps track of every one it opened
type Dialer struct {
	// OpenErr, when set, is returned by every Open call
	OpenErr error
	// Hooks is copied into every Conn
	Hooks Hooks

	mu      sync.Mutex
	conns   []*Conn
	seq     atomic.Int64
	active  atomic.Int64
	maxSeen atomic.Int64
}

// Hooks customise the behaviour of a Conn. Nil hooks succeed.
type Hooks struct {
	Configure func(ctx context.Context, c types.Capability) error
	Navigate  func(ctx context.Context, url string) error
	Execute   func(ctx context.Context, script string, args ...any) (any, error)
	Close     func(ctx context.Context) error
	Capture   func(ctx context.Context, path string) error
}

var _ session.Dialer = (*Dialer)(nil)

// Open implements session.Dialer
func (d *Dialer) Open(ctx context.Context, endpoint session.Endpoint) (session.Conn, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	n := d.active.Add(1)
	for {
		max := d.maxSeen.Load()
		if n <= max || d.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	c := &Conn{
		dialer:   d,
		endpoint: endpoint,
		hooks:    d.Hooks,
		id:       fmt.Sprintf("session-%d", d.seq.Add(1)),
	}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

// Conns returns every Conn opened so far
func (d *Dialer) Conns() []*Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Conn, len(d.conns))
	copy(out, d.conns)
	return out
}

// MaxConcurrent returns the highest number of simultaneously open sessions
func (d *Dialer) MaxConcurrent() int {
	return int(d.maxSeen.Load())
}

// Active returns the number of sessions currently open
func (d *Dialer) Active() int {
	return int(d.active.Load())
}

// Conn is an in-memory session.Conn
type Conn struct {
	dialer   *Dialer
	endpoint session.Endpoint
	hooks    Hooks
	id       string

	mu          sync.Mutex
	configured  bool
	capability  types.Capability
	url         string
	scripts     []string
	screenshots []string
	closed      int
}

var _ session.Conn = (*Conn)(nil)

// ID implements session.Conn
func (c *Conn) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return ""
	}
	return c.id
}

// Configure implements session.Conn
func (c *Conn) Configure(ctx context.Context, capability types.Capability) error {
	if c.hooks.Configure != nil {
		if err := c.hooks.Configure(ctx, capability); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configured = true
	c.capability = capability
	return nil
}

// Navigate implements session.Conn
func (c *Conn) Navigate(ctx context.Context, url string) error {
	if c.hooks.Navigate != nil {
		if err := c.hooks.Navigate(ctx, url); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = url
	return nil
}

// Execute implements session.Conn
func (c *Conn) Execute(ctx context.Context, script string, args ...any) (any, error) {
	c.mu.Lock()
	c.scripts = append(c.scripts, script)
	c.mu.Unlock()
	if c.hooks.Execute != nil {
		return c.hooks.Execute(ctx, script, args...)
	}
	return nil, nil
}

// Sleep implements session.Conn
func (c *Conn) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CaptureScreenshot implements session.Conn. It writes an empty file at path.
func (c *Conn) CaptureScreenshot(ctx context.Context, path string) error {
	if c.hooks.Capture != nil {
		if err := c.hooks.Capture(ctx, path); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screenshots = append(c.screenshots, path)
	return nil
}

// Close implements session.Conn
func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed++
	first := c.closed == 1
	c.mu.Unlock()
	if first {
		c.dialer.active.Add(-1)
	}
	if c.hooks.Close != nil {
		return c.hooks.Close(ctx)
	}
	return nil
}

// Endpoint returns the endpoint the Conn was opened against
func (c *Conn) Endpoint() session.Endpoint {
	return c.endpoint
}

// Capability returns the configured capability
func (c *Conn) Capability() types.Capability {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capability
}

// URL returns the last navigated url
func (c *Conn) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

// Scripts returns every script passed to Execute
func (c *Conn) Scripts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.scripts))
	copy(out, c.scripts)
	return out
}

// Screenshots returns the paths of captured screenshots
func (c *Conn) Screenshots() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.screenshots))
	copy(out, c.screenshots)
	return out
}

// CloseCount returns how many times Close was called
func (c *Conn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
