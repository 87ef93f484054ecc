package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-browsertest/environment"
	"github.com/ethereum-optimism/infra/op-browsertest/metrics"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// parallelExecutor runs the tasks of one run on a bounded pool of workers
type parallelExecutor struct {
	runner      *Runner
	env         *environment.Environment
	concurrency int
	log         log.Logger
}

func newParallelExecutor(r *Runner, env *environment.Environment, logger log.Logger) *parallelExecutor {
	if env.MaxSessions > MaxReasonableConcurrency {
		logger.Warn("Very high session count requested", "maxSessions", env.MaxSessions,
			"recommendation", "Check the remote grid's concurrency allowance")
	}
	return &parallelExecutor{
		runner:      r,
		env:         env,
		concurrency: env.MaxSessions,
		log:         logger.New("component", "parallel-executor"),
	}
}

// execute runs every task and adds exactly one entry per task to agg. It
// returns once all entries have been collected.
func (pe *parallelExecutor) execute(ctx context.Context, tasks []Task, agg *Aggregator) {
	start := time.Now()
	workers := min(pe.concurrency, len(tasks))

	// both channels hold every task so neither side ever blocks on the other
	workChan := make(chan Task, len(tasks))
	resultChan := make(chan TaskResult, len(tasks))
	for _, task := range tasks {
		workChan <- task
	}
	close(workChan)

	pe.log.Info("Starting parallel execution", "tasks", len(tasks), "workers", workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go pe.worker(ctx, i, &wg, workChan, resultChan)
	}

	completed := 0
	for completed < len(tasks) {
		res := <-resultChan
		completed++
		agg.Add(res.Task.Suite, res.Task.Test.ID, res.Entry)
		pe.runner.progress.CompleteTask(res.Task.Name(), res.Entry)
		pe.log.Debug("Collected task result", "task", res.Task.Name(), "status", res.Entry.Status,
			"completed", completed, "total", len(tasks))
	}

	wg.Wait()
	pe.log.Info("Parallel execution finished", "tasks", len(tasks), "duration", time.Since(start))
}

// worker pulls tasks until the work channel is drained. Once ctx is done the
// remaining tasks are recorded as cancelled without opening a session.
func (pe *parallelExecutor) worker(ctx context.Context, id int, wg *sync.WaitGroup, workChan <-chan Task, resultChan chan<- TaskResult) {
	defer wg.Done()

	workerID := fmt.Sprintf("worker-%d", id)
	pe.log.Debug("Worker starting", "workerID", workerID)
	defer pe.log.Debug("Worker exiting", "workerID", workerID)

	for task := range workChan {
		if ctx.Err() != nil {
			resultChan <- TaskResult{Task: task, Entry: cancelledEntry(task, ctx.Err())}
			continue
		}

		pe.log.Debug("Worker processing task", "workerID", workerID, "task", task.Name())
		pe.runner.progress.StartTask(task.Name())
		entry := pe.runner.runTask(ctx, pe.env, task)
		resultChan <- TaskResult{Task: task, Entry: entry}
	}
}

func cancelledEntry(task Task, cause error) *types.ResultEntry {
	entry := types.NewResultEntry(task.Capability)
	entry.Fail(types.FailureCancelled, fmt.Sprintf("run cancelled before task started: %v", cause))
	metrics.RecordErrorDetails("task_cancelled", cause)
	return entry
}
