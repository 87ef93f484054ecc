package runner

import (
	"sort"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// Aggregator accumulates task entries into the suite/test hierarchy and
// produces the final AggregateResult. Add is only called from the collector
// loop; the mutex covers readers such as the status endpoint.
type Aggregator struct {
	mu       sync.Mutex
	once     sync.Once
	result   *types.AggregateResult
	reported []ReportableEntry
}

// NewAggregator creates an aggregator for one run
func NewAggregator(runID string, start time.Time, capabilityCount int) *Aggregator {
	return &Aggregator{
		result: &types.AggregateResult{
			RunID:         runID,
			TotalBrowsers: capabilityCount,
			StartTime:     start,
			Results:       make(map[string]types.SuiteResults),
		},
	}
}

// Add records entry under suite and testID
func (a *Aggregator) Add(suite, testID string, entry *types.ResultEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.result.Results[suite]; !ok {
		a.result.Results[suite] = make(types.SuiteResults)
	}
	a.result.Results[suite][testID] = append(a.result.Results[suite][testID], entry)

	if entry.Passed() {
		a.result.Passed++
	} else {
		a.result.Failed++
	}
	if entry.SessionID != "" {
		a.reported = append(a.reported, ReportableEntry{Suite: suite, TestID: testID, Entry: entry})
	}
}

// Finalize stamps the totals, status and elapsed time. Only the first call has
// any effect; later calls return the same result.
func (a *Aggregator) Finalize(scheduled int) *types.AggregateResult {
	a.once.Do(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.result.TotalTests = scheduled
		a.result.ElapsedTime = time.Since(a.result.StartTime)
		a.result.Status = types.TestStatusPass
		if a.result.Failed > 0 {
			a.result.Status = types.TestStatusFail
		}
	})
	return a.result
}

// Entries returns every recorded entry that has a remote session ID, ordered
// by suite and test.
func (a *Aggregator) Entries() []ReportableEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]ReportableEntry, len(a.reported))
	copy(out, a.reported)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Suite != out[j].Suite {
			return out[i].Suite < out[j].Suite
		}
		return out[i].TestID < out[j].TestID
	})
	return out
}

// Completed returns the number of entries recorded so far
func (a *Aggregator) Completed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result.Passed + a.result.Failed
}
