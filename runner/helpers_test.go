package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-browsertest/discovery"
	"github.com/ethereum-optimism/infra/op-browsertest/environment"
	"github.com/ethereum-optimism/infra/op-browsertest/registry"
	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

var (
	chrome  = types.Capability{BrowserName: "chrome", Platform: "Windows 10", BrowserVersion: "120"}
	firefox = types.Capability{BrowserName: "firefox", Platform: "Linux"}
)

func newTestRunner(t *testing.T, d session.Dialer, mutate ...func(*Config)) *Runner {
	t.Helper()
	cfg := Config{
		Registry: registry.NewRegistry(registry.Config{Log: testlog.Logger(t, log.LevelInfo)}),
		Dialer:   d,
		Log:      testlog.Logger(t, log.LevelInfo),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	r, err := New(cfg)
	require.NoError(t, err)
	return r
}

func testEnv(browsers ...types.Capability) *environment.Environment {
	return &environment.Environment{
		Name:        "test",
		URL:         "http://example.com",
		Host:        "localhost",
		Port:        4444,
		Browsers:    browsers,
		MaxSessions: 1,
	}
}

func passProc() session.Procedure {
	return func(ctx context.Context, s *session.Session) error { return nil }
}

func failProc(msg string) session.Procedure {
	return func(ctx context.Context, s *session.Session) error { return errors.New(msg) }
}

func newSuite(name string, tests ...discovery.Test) discovery.Suite {
	return discovery.Suite{Name: name, Tests: tests}
}

func newTest(id string, proc session.Procedure) discovery.Test {
	return discovery.Test{ID: id, Path: id + ".js", Procedure: proc}
}

// statusMessages flattens a result into "suite/test/browser" -> "status:message"
func statusMessages(r *types.AggregateResult) map[string]string {
	out := make(map[string]string)
	for suite, tests := range r.Results {
		for id, entries := range tests {
			for _, e := range entries {
				out[fmt.Sprintf("%s/%s/%s", suite, id, e.Browser)] = fmt.Sprintf("%s:%s", e.Status, e.Message)
			}
		}
	}
	return out
}

// recordingProgress records the calls made to a ProgressIndicator
type recordingProgress struct {
	mu        sync.Mutex
	runs      int
	total     int
	started   []string
	completed []string
	finished  []*types.AggregateResult
}

func (p *recordingProgress) StartRun(runID string, totalTasks int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs++
	p.total = totalTasks
}

func (p *recordingProgress) StartTask(taskName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, taskName)
}

func (p *recordingProgress) CompleteTask(taskName string, entry *types.ResultEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, taskName)
}

func (p *recordingProgress) CompleteRun(result *types.AggregateResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = append(p.finished, result)
}

// testLogger is a log.Logger that keeps every formatted line
type testLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *testLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *testLogger) logFn(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, msg)
}

func (l *testLogger) formatMessage(msg string, ctx ...interface{}) string {
	if len(ctx) == 0 {
		return msg
	}
	var pairs []string
	for i := 0; i+1 < len(ctx); i += 2 {
		pairs = append(pairs, fmt.Sprintf("%v=%v", ctx[i], ctx[i+1]))
	}
	return fmt.Sprintf("%s %s", msg, strings.Join(pairs, " "))
}

func (l *testLogger) Crit(msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) CritContext(_ context.Context, msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) Error(msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) ErrorContext(_ context.Context, msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) Warn(msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) WarnContext(_ context.Context, msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) Info(msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) InfoContext(_ context.Context, msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) Debug(msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) DebugContext(_ context.Context, msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) Trace(msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) TraceContext(_ context.Context, msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) New(ctx ...interface{}) log.Logger {
	return l
}

func (l *testLogger) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (l *testLogger) With(ctx ...interface{}) log.Logger {
	return l
}

func (l *testLogger) Handler() slog.Handler {
	return nil
}

func (l *testLogger) Log(level slog.Level, msg string, ctx ...interface{}) {
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) LogAttrs(_ context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	ctx := make([]interface{}, 0, len(attrs))
	for _, attr := range attrs {
		ctx = append(ctx, attr.Key, attr.Value.String())
	}
	l.logFn(l.formatMessage(msg, ctx...))
}

func (l *testLogger) Write(level slog.Level, msg string, attrs ...any) {
	l.logFn(l.formatMessage(msg, attrs...))
}

func (l *testLogger) WriteCtx(_ context.Context, level slog.Level, msg string, attrs ...any) {
	l.logFn(l.formatMessage(msg, attrs...))
}

func (l *testLogger) SetContext(_ context.Context) {}
