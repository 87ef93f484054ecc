// Package session defines the remote automation session contract consumed by
// the runner and the handle that test procedures receive.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// Endpoint identifies the remote automation server a session is opened against
type Endpoint struct {
	Host      string
	Port      int
	Username  string
	AccessKey string
}

// Address returns host:port
func (e Endpoint) Address() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Dialer opens independent remote sessions. Implementations must honour ctx.
type Dialer interface {
	Open(ctx context.Context, endpoint Endpoint) (Conn, error)
}

// Conn is one remote automation connection
type Conn interface {
	// ID returns the remote session identifier, empty until Configure succeeded
	ID() string
	Configure(ctx context.Context, capability types.Capability) error
	Navigate(ctx context.Context, url string) error
	Execute(ctx context.Context, script string, args ...any) (any, error)
	Sleep(ctx context.Context, d time.Duration) error
	CaptureScreenshot(ctx context.Context, path string) error
	Close(ctx context.Context) error
}

// Operation is a named extension callable that can be attached to a session
type Operation func(ctx context.Context, s *Session, args ...any) (any, error)

// BoundOperation is an Operation bound to one session handle
type BoundOperation func(ctx context.Context, args ...any) (any, error)

// Procedure is an opaque test body. A nil return is a pass, an error is a failure.
type Procedure func(ctx context.Context, s *Session) error

// Session is the handle test procedures receive. Transport errors returned by
// its methods are wrapped in *types.SessionFault so they can be told apart
// from assertion failures.
type Session struct {
	conn Conn
	ops  map[string]BoundOperation
}

// New wraps conn in a session handle and binds ops to it. Each call produces
// an independent operation table.
func New(conn Conn, ops map[string]Operation) *Session {
	s := &Session{
		conn: conn,
		ops:  make(map[string]BoundOperation, len(ops)),
	}
	for name, op := range ops {
		op := op
		s.ops[name] = func(ctx context.Context, args ...any) (any, error) {
			return op(ctx, s, args...)
		}
	}
	return s
}

// ID returns the remote session identifier
func (s *Session) ID() string {
	return s.conn.ID()
}

// Configure applies the capability to the session
func (s *Session) Configure(ctx context.Context, capability types.Capability) error {
	if err := s.conn.Configure(ctx, capability); err != nil {
		return types.NewSessionFault("configure", err)
	}
	return nil
}

// Navigate directs the session to url
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.conn.Navigate(ctx, url); err != nil {
		return types.NewSessionFault("navigate", err)
	}
	return nil
}

// Execute runs script in the remote browser and returns its value. An exception
// thrown by the script is returned as a *types.ScriptError; any other failure
// is a session fault.
func (s *Session) Execute(ctx context.Context, script string, args ...any) (any, error) {
	v, err := s.conn.Execute(ctx, script, args...)
	if err != nil {
		var scriptErr *types.ScriptError
		if errors.As(err, &scriptErr) {
			return nil, scriptErr
		}
		return nil, types.NewSessionFault("execute", err)
	}
	return v, nil
}

// Sleep pauses for d or until ctx is done
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	if err := s.conn.Sleep(ctx, d); err != nil {
		return types.NewSessionFault("sleep", err)
	}
	return nil
}

// CaptureScreenshot stores a screenshot of the current page at path
func (s *Session) CaptureScreenshot(ctx context.Context, path string) error {
	if err := s.conn.CaptureScreenshot(ctx, path); err != nil {
		return types.NewSessionFault("screenshot", err)
	}
	return nil
}

// Close ends the remote session
func (s *Session) Close(ctx context.Context) error {
	if err := s.conn.Close(ctx); err != nil {
		return types.NewSessionFault("close", err)
	}
	return nil
}

// Call invokes an attached operation by name
func (s *Session) Call(ctx context.Context, name string, args ...any) (any, error) {
	op, ok := s.ops[name]
	if !ok {
		return nil, fmt.Errorf("unknown session operation %q", name)
	}
	return op(ctx, args...)
}

// Operation returns the bound operation registered under name
func (s *Session) Operation(name string) (BoundOperation, bool) {
	op, ok := s.ops[name]
	return op, ok
}

// Operations returns the names of all attached operations, sorted
func (s *Session) Operations() []string {
	names := make([]string, 0, len(s.ops))
	for name := range s.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
