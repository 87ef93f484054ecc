package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-browsertest/environment"
	"github.com/ethereum-optimism/infra/op-browsertest/metrics"
	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

type openResult struct {
	conn session.Conn
	err  error
}

// runTask drives one session through open, configure, navigate and invoke,
// then captures a screenshot if enabled and releases the session. It always
// returns an entry.
func (r *Runner) runTask(ctx context.Context, env *environment.Environment, task Task) *types.ResultEntry {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("task %s/%s", task.Suite, task.Test.ID))
	defer span.End()
	span.SetAttributes(
		attribute.String("browser", task.Capability.BrowserName),
		attribute.String("browser_version", task.Capability.BrowserVersion),
		attribute.String("platform", task.Capability.Platform),
	)

	logger := r.log.New("suite", task.Suite, "test", task.Test.ID, "capability", task.Capability.String())
	start := time.Now()
	entry := types.NewResultEntry(task.Capability)

	taskCtx, cancel := context.WithTimeout(ctx, r.taskTimeout)
	defer cancel()

	// Acquire
	conn, err := r.openSession(taskCtx, env)
	if err != nil {
		r.classify(ctx, taskCtx, entry, types.NewSessionFault("open", err))
		return r.finish(env, task, entry, start, span)
	}
	s := r.registry.Attach(conn)
	metrics.SessionOpened(env.Name)
	defer r.release(ctx, env, s, logger)

	// Configure
	if err := guard(taskCtx, func() error { return s.Configure(taskCtx, task.Capability) }); err != nil {
		r.classify(ctx, taskCtx, entry, err)
		return r.finish(env, task, entry, start, span)
	}
	entry.SessionID = s.ID()
	span.SetAttributes(attribute.String("session_id", entry.SessionID))

	// Navigate
	if err := guard(taskCtx, func() error { return s.Navigate(taskCtx, env.URL) }); err != nil {
		r.classify(ctx, taskCtx, entry, err)
		r.captureArtifact(ctx, env, task, s, entry, logger)
		return r.finish(env, task, entry, start, span)
	}

	// Invoke
	err = guard(taskCtx, func() error { return invoke(taskCtx, task.Test.Procedure, s) })
	if err != nil {
		r.classify(ctx, taskCtx, entry, err)
	} else {
		entry.Pass()
	}

	r.captureArtifact(ctx, env, task, s, entry, logger)
	return r.finish(env, task, entry, start, span)
}

// openSession dials the environment. When the deadline passes first, a
// session that is opened late is closed in the background.
func (r *Runner) openSession(ctx context.Context, env *environment.Environment) (session.Conn, error) {
	done := make(chan openResult, 1)
	go func() {
		conn, err := r.dialer.Open(ctx, env.Endpoint())
		done <- openResult{conn: conn, err: err}
	}()

	select {
	case res := <-done:
		return res.conn, res.err
	case <-ctx.Done():
		go func() {
			res := <-done
			if res.conn != nil {
				closeCtx, cancel := context.WithTimeout(context.Background(), r.releaseTimeout)
				defer cancel()
				if err := res.conn.Close(closeCtx); err != nil {
					r.log.Warn("Failed to close late session", "error", err)
				}
			}
		}()
		return nil, ctx.Err()
	}
}

// release closes the session on a context detached from the task deadline
func (r *Runner) release(ctx context.Context, env *environment.Environment, s *session.Session, logger log.Logger) {
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.releaseTimeout)
	defer cancel()
	defer metrics.SessionClosed(env.Name)

	if err := guard(relCtx, func() error { return s.Close(relCtx) }); err != nil {
		logger.Warn("Failed to release session", "session", s.ID(), "error", err)
		metrics.RecordReleaseError(env.Name)
	}
}

// captureArtifact stores a screenshot named after the browser, platform, test
// and outcome. Failures are logged and never change the outcome.
func (r *Runner) captureArtifact(ctx context.Context, env *environment.Environment, task Task, s *session.Session, entry *types.ResultEntry, logger log.Logger) {
	if !env.ScreenshotsEnabled() {
		return
	}
	if err := os.MkdirAll(env.ScreenshotsPath, 0755); err != nil {
		logger.Warn("Failed to create screenshots directory", "path", env.ScreenshotsPath, "error", err)
		return
	}

	path := filepath.Join(env.ScreenshotsPath, ScreenshotName(task.Capability, task.Test.ID, entry.Passed()))
	capCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.releaseTimeout)
	defer cancel()

	if err := guard(capCtx, func() error { return s.CaptureScreenshot(capCtx, path) }); err != nil {
		logger.Warn("Failed to capture screenshot", "path", path, "error", err)
		metrics.RecordErrorDetails("screenshot", err)
		return
	}
	entry.Screenshot = path
}

// ScreenshotName returns <browser>_<platform>_<test>_<success|fail>.png with
// every whitespace character replaced by an underscore.
func ScreenshotName(c types.Capability, testID string, passed bool) string {
	outcome := "fail"
	if passed {
		outcome = "success"
	}
	name := fmt.Sprintf("%s_%s_%s_%s%s", c.BrowserName, c.Platform, testID, outcome, screenshotExt)
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name)
}

// classify marks entry as failed according to err and the state of the run
// and task contexts.
func (r *Runner) classify(runCtx, taskCtx context.Context, entry *types.ResultEntry, err error) {
	switch {
	case runCtx.Err() != nil:
		entry.Fail(types.FailureCancelled, fmt.Sprintf("run cancelled: %v", err))
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		entry.Fail(types.FailureTimeout, fmt.Sprintf("test timed out after %v", r.taskTimeout))
	case types.IsSessionFault(err):
		entry.Fail(types.FailureSession, err.Error())
	default:
		entry.Fail(types.FailureAssertion, err.Error())
	}
}

func (r *Runner) finish(env *environment.Environment, task Task, entry *types.ResultEntry, start time.Time, span trace.Span) *types.ResultEntry {
	entry.Duration = time.Since(start)
	if !entry.Passed() {
		span.SetStatus(codes.Error, entry.Message)
	}
	span.SetAttributes(attribute.String("status", string(entry.Status)))
	metrics.RecordTask(env.Name, task.Suite, task.Capability, entry.Status, entry.FailureKind, entry.Duration)
	return entry
}

// invoke runs the procedure, turning a panic into an error
func invoke(ctx context.Context, proc session.Procedure, s *session.Session) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("test panicked: %v", rec)
		}
	}()
	if proc == nil {
		return errors.New("test has no procedure")
	}
	return proc(ctx, s)
}

// guard runs fn and returns its error, or ctx.Err() if ctx is done first. fn
// keeps running in the background after ctx is done; the caller stops
// waiting for it.
func guard(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("panic: %v", rec)
			}
		}()
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
