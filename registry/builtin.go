package registry

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum-optimism/infra/op-browsertest/session"
)

const (
	WaitForDocName           = "waitForDoc"
	DefaultWaitForDocTimeout = 60 * time.Second
)

var ErrDocumentTimeout = errors.New("timeout occurred waiting for document")

// RegisterBuiltins registers the operations shipped with the runner. They are
// registered last so user plugins with the same name take precedence.
func (r *Registry) RegisterBuiltins() {
	r.Register(WaitForDocName, WaitForDocument(time.Second))
}

// WaitForDocument returns an operation that polls document.readyState every
// interval until it reports "complete". The state is checked at least once,
// even when the timeout is shorter than interval. The optional first argument
// is either a time.Duration or a map with a "timeout" entry in milliseconds.
func WaitForDocument(interval time.Duration) session.Operation {
	return func(ctx context.Context, s *session.Session, args ...any) (any, error) {
		timeout := waitTimeout(args)
		attempts := max(1, int(timeout/interval))

		for i := 0; i < attempts; i++ {
			if i > 0 {
				if err := s.Sleep(ctx, interval); err != nil {
					return nil, err
				}
			}
			state, err := s.Execute(ctx, "return document.readyState;")
			if err != nil {
				return nil, err
			}
			if state == "complete" {
				return true, nil
			}
		}
		return nil, ErrDocumentTimeout
	}
}

func waitTimeout(args []any) time.Duration {
	if len(args) == 0 {
		return DefaultWaitForDocTimeout
	}
	switch v := args[0].(type) {
	case time.Duration:
		if v > 0 {
			return v
		}
	case map[string]any:
		switch ms := v["timeout"].(type) {
		case int:
			return time.Duration(ms) * time.Millisecond
		case int64:
			return time.Duration(ms) * time.Millisecond
		case float64:
			return time.Duration(ms) * time.Millisecond
		}
	}
	return DefaultWaitForDocTimeout
}
