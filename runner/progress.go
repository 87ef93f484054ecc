package runner

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// ProgressIndicator receives run progress. Calls may come from any worker.
type ProgressIndicator interface {
	StartRun(runID string, totalTasks int)
	StartTask(taskName string)
	CompleteTask(taskName string, entry *types.ResultEntry)
	CompleteRun(result *types.AggregateResult)
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartRun(runID string, totalTasks int)                  {}
func (n *noOpProgressIndicator) StartTask(taskName string)                              {}
func (n *noOpProgressIndicator) CompleteTask(taskName string, entry *types.ResultEntry) {}
func (n *noOpProgressIndicator) CompleteRun(result *types.AggregateResult)              {}

// ConsoleProgressIndicator logs a progress summary on every tick and, when
// verbose, one line per completed task.
type ConsoleProgressIndicator struct {
	logger  log.Logger
	verbose bool
	ticker  *time.Ticker
	stopCh  chan struct{}
	stopped sync.Once
	mu      sync.RWMutex

	runID          string
	completedTasks int
	failedTasks    int
	totalTasks     int
	runStartTime   time.Time

	// task name -> start time
	runningTasks map[string]time.Time
}

// NewConsoleProgressIndicator creates a progress indicator that shows updates in the console
func NewConsoleProgressIndicator(logger log.Logger, updateInterval time.Duration, verbose bool) *ConsoleProgressIndicator {
	if updateInterval == 0 {
		updateInterval = 30 * time.Second
	}

	indicator := &ConsoleProgressIndicator{
		logger:       logger,
		verbose:      verbose,
		ticker:       time.NewTicker(updateInterval),
		stopCh:       make(chan struct{}),
		runningTasks: make(map[string]time.Time),
	}

	go indicator.progressReporter()

	return indicator
}

func (c *ConsoleProgressIndicator) StartRun(runID string, totalTasks int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runID = runID
	c.totalTasks = totalTasks
	c.completedTasks = 0
	c.failedTasks = 0
	c.runStartTime = time.Now()
	c.runningTasks = make(map[string]time.Time)
}

// StartTask tracks when a task starts running
func (c *ConsoleProgressIndicator) StartTask(taskName string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.runningTasks[taskName] = time.Now()
	c.logger.Debug("Task started", "task", taskName, "runningTasks", len(c.runningTasks))
}

func (c *ConsoleProgressIndicator) CompleteTask(taskName string, entry *types.ResultEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.runningTasks, taskName)
	c.completedTasks++
	if !entry.Passed() {
		c.failedTasks++
	}

	if !c.verbose {
		return
	}
	fields := []interface{}{
		"task", taskName,
		"status", entry.Status,
		"duration", entry.Duration.Truncate(time.Millisecond),
		"completed", c.completedTasks,
		"total", c.totalTasks,
	}
	if entry.SessionID != "" {
		fields = append(fields, "session", entry.SessionID)
	}
	if !entry.Passed() {
		fields = append(fields, "kind", entry.FailureKind, "message", stripansi.Strip(entry.Message))
		c.logger.Warn("Task failed", fields...)
		return
	}
	c.logger.Info("Task passed", fields...)
}

func (c *ConsoleProgressIndicator) CompleteRun(result *types.AggregateResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	duration := time.Since(c.runStartTime).Truncate(time.Second)
	c.logger.Info("Completed run", "run_id", c.runID, "total", c.totalTasks, "completed", c.completedTasks,
		"failed", c.failedTasks, "duration", duration)
	c.runningTasks = make(map[string]time.Time)
}

// progressReporter runs in a goroutine and periodically reports progress
func (c *ConsoleProgressIndicator) progressReporter() {
	for {
		select {
		case <-c.ticker.C:
			c.reportProgress()
		case <-c.stopCh:
			return
		}
	}
}

func (c *ConsoleProgressIndicator) reportProgress() {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.totalTasks == 0 || c.completedTasks == c.totalTasks {
		return
	}

	percentComplete := float64(c.completedTasks) * 100.0 / float64(c.totalTasks)
	c.logger.Info("Progress update",
		"run_id", c.runID,
		"completed", c.completedTasks,
		"failed", c.failedTasks,
		"total", c.totalTasks,
		"percent", fmt.Sprintf("%.1f%%", percentComplete),
		"numRunning", len(c.runningTasks),
		"longestRunning", formatRunningTasks(c.runningTasks, 3),
	)
}

// Stop stops the progress indicator. It is safe to call more than once.
func (c *ConsoleProgressIndicator) Stop() {
	c.stopped.Do(func() {
		c.ticker.Stop()
		close(c.stopCh)
	})
}

// formatRunningTasks lists the longest running tasks first, limited to maxShow
func formatRunningTasks(runningTasks map[string]time.Time, maxShow int) string {
	if len(runningTasks) == 0 {
		return ""
	}

	type runningTask struct {
		name     string
		duration time.Duration
	}

	var running []runningTask
	now := time.Now()
	for name, startTime := range runningTasks {
		running = append(running, runningTask{
			name:     name,
			duration: now.Sub(startTime),
		})
	}

	sort.Slice(running, func(i, j int) bool {
		return running[i].duration > running[j].duration
	})

	var parts []string
	for i, task := range running {
		if i >= maxShow {
			break
		}
		parts = append(parts, fmt.Sprintf("%s (%v)", task.name, task.duration.Truncate(time.Second)))
	}

	if len(running) > maxShow {
		parts = append(parts, fmt.Sprintf("+%d more", len(running)-maxShow))
	}

	return strings.Join(parts, ", ")
}
