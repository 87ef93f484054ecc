package browsertest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-browsertest/discovery"
	"github.com/ethereum-optimism/infra/op-browsertest/environment"
	"github.com/ethereum-optimism/infra/op-browsertest/runner"
	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

var chrome = types.Capability{BrowserName: "chrome", Platform: "Windows 10", BrowserVersion: "120"}

// writeTestTree creates root/<suite>/<id>.js for every "suite/id" given
func writeTestTree(t *testing.T, tests ...string) string {
	t.Helper()
	root := t.TempDir()
	writeInto(t, root, tests...)
	return root
}

func writeInto(t *testing.T, root string, tests ...string) {
	t.Helper()
	for _, key := range tests {
		path := filepath.Join(root, filepath.FromSlash(key)+".js")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("return true;"), 0644))
	}
}

func testEnvironment() *environment.Environment {
	return &environment.Environment{
		Name:        "staging",
		URL:         "http://shop.example.com",
		Host:        "localhost",
		Port:        4444,
		Browsers:    []types.Capability{chrome},
		MaxSessions: 2,
	}
}

func testConfig(t *testing.T, testDir string) *Config {
	return &Config{
		EnvName:        "staging",
		Environment:    testEnvironment(),
		TestDir:        testDir,
		TestPattern:    discovery.DefaultTestPattern,
		TaskTimeout:    5 * time.Second,
		ReleaseTimeout: time.Second,
		RunOnce:        true,
		Log:            testlog.Logger(t, log.LevelInfo),
	}
}

func catalog(procs map[string]session.Procedure) *discovery.Catalog {
	c := discovery.NewCatalog()
	for key, proc := range procs {
		c.Register(key, proc)
	}
	return c
}

func pass(ctx context.Context, s *session.Session) error { return nil }

func fail(msg string) session.Procedure {
	return func(ctx context.Context, s *session.Session) error { return errors.New(msg) }
}

// recordingJobReporter keeps every batch handed to it
type recordingJobReporter struct {
	mu      sync.Mutex
	batches [][]runner.ReportableEntry
}

func (r *recordingJobReporter) Report(ctx context.Context, entries []runner.ReportableEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		e.Entry.PublicLink = "https://grid.example.com/jobs/" + e.Entry.SessionID
	}
	r.batches = append(r.batches, entries)
	return nil
}

func (r *recordingJobReporter) Batches() [][]runner.ReportableEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches
}
