package service

import (
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// RunSummary is the status view of one finished run
type RunSummary struct {
	RunID         string           `json:"run_id"`
	Environment   string           `json:"environment"`
	Status        types.TestStatus `json:"status"`
	TotalTests    int              `json:"total_tests"`
	TotalBrowsers int              `json:"total_browsers"`
	Passed        int              `json:"passed"`
	Failed        int              `json:"failed"`
	ElapsedTime   string           `json:"elapsed_time"`
	FinishedAt    time.Time        `json:"finished_at"`
}

// Status is the payload served on /status
type Status struct {
	Runs    int         `json:"runs"`
	Running bool        `json:"running"`
	LastRun *RunSummary `json:"last_run,omitempty"`
}

// StatusBoard holds the summary of the most recent run. It is shared between
// the run loop, which writes it, and the HTTP handlers, which read it.
type StatusBoard struct {
	mu      sync.RWMutex
	runs    int
	running bool
	last    *RunSummary
}

func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

// RunStarted marks a run as in progress
func (b *StatusBoard) RunStarted() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = true
}

// RunFinished records the aggregate of a finished run
func (b *StatusBoard) RunFinished(env string, result *types.AggregateResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
	if result == nil {
		return
	}
	b.runs++
	b.last = &RunSummary{
		RunID:         result.RunID,
		Environment:   env,
		Status:        result.Status,
		TotalTests:    result.TotalTests,
		TotalBrowsers: result.TotalBrowsers,
		Passed:        result.Passed,
		Failed:        result.Failed,
		ElapsedTime:   result.HumanElapsed(),
		FinishedAt:    time.Now(),
	}
}

// Snapshot returns a copy of the current status
func (b *StatusBoard) Snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := Status{Runs: b.runs, Running: b.running}
	if b.last != nil {
		last := *b.last
		s.LastRun = &last
	}
	return s
}
