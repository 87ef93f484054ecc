package runner

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-browsertest/discovery"
	"github.com/ethereum-optimism/infra/op-browsertest/metrics"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// Task is one (suite, test, capability) combination
type Task struct {
	Index      int
	Suite      string
	Test       discovery.Test
	Capability types.Capability
}

// Name returns a short identifier for logging and progress output
func (t Task) Name() string {
	return fmt.Sprintf("%s/%s [%s]", t.Suite, t.Test.ID, t.Capability)
}

// TaskResult is the terminal outcome of a task
type TaskResult struct {
	Task  Task
	Entry *types.ResultEntry
}

// ReportableEntry is a finished entry that carries a remote session ID
type ReportableEntry struct {
	Suite  string
	TestID string
	Entry  *types.ResultEntry
}

// JobReporter publishes finished entries to a remote grid. Implementations
// record per-entry problems on the entry itself.
type JobReporter interface {
	Report(ctx context.Context, entries []ReportableEntry) error
}

// expandTasks builds the task list in capability-major order: every browser,
// then every suite, then every test.
func expandTasks(plan Plan) []Task {
	var tasks []Task
	for _, c := range plan.Environment.Browsers {
		for _, suite := range plan.Suites {
			for _, test := range suite.Tests {
				if plan.Filter != "" && test.ID != plan.Filter {
					continue
				}
				tasks = append(tasks, Task{
					Index:      len(tasks),
					Suite:      suite.Name,
					Test:       test,
					Capability: c,
				})
			}
		}
	}
	return tasks
}

func (r *Runner) reportJobs(ctx context.Context, logger log.Logger, entries []ReportableEntry) {
	if len(entries) == 0 {
		logger.Debug("No sessions to report")
		return
	}
	logger.Info("Reporting jobs to remote grid", "entries", len(entries))
	// results are already final; reporting must not be cut short by run cancellation
	if err := r.reporter.Report(context.WithoutCancel(ctx), entries); err != nil {
		logger.Warn("Remote job reporting finished with errors", "error", err)
		metrics.RecordErrorDetails("report_jobs", err)
	}
}
