package types

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ResultEntry captures the outcome of a single (suite, test, capability) task
type ResultEntry struct {
	Platform       string        `json:"platform" yaml:"platform"`
	Browser        string        `json:"browser" yaml:"browser"`
	BrowserVersion string        `json:"browserVersion" yaml:"browserVersion"`
	Status         TestStatus    `json:"status" yaml:"status"`
	Message        string        `json:"message" yaml:"message"`
	FailureKind    FailureKind   `json:"failure_kind,omitempty" yaml:"failure_kind,omitempty"`
	SessionID      string        `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	PublicLink     string        `json:"public_link,omitempty" yaml:"public_link,omitempty"`
	Screenshot     string        `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
	ReportError    string        `json:"report_error,omitempty" yaml:"report_error,omitempty"`
	Duration       time.Duration `json:"-" yaml:"-"`
}

// NewResultEntry creates an entry carrying the capability fields of the task
func NewResultEntry(c Capability) *ResultEntry {
	return &ResultEntry{
		Platform:       c.Platform,
		Browser:        c.BrowserName,
		BrowserVersion: c.BrowserVersion,
	}
}

// Pass marks the entry as passed
func (e *ResultEntry) Pass() {
	e.Status = TestStatusPass
	e.Message = ""
	e.FailureKind = FailureNone
}

// Fail marks the entry as failed with the given kind and message
func (e *ResultEntry) Fail(kind FailureKind, message string) {
	e.Status = TestStatusFail
	e.FailureKind = kind
	e.Message = message
}

// Passed reports whether the entry passed
func (e *ResultEntry) Passed() bool {
	return e.Status == TestStatusPass
}

// SuiteResults maps a test identifier to its entries, one per executed capability
type SuiteResults map[string][]*ResultEntry

// AggregateResult is the final report of a run
type AggregateResult struct {
	RunID         string
	TotalTests    int
	TotalBrowsers int
	Passed        int
	Failed        int
	Status        TestStatus
	ElapsedTime   time.Duration
	StartTime     time.Time
	Results       map[string]SuiteResults
}

// EntryCount returns the number of recorded entries across all suites and tests
func (r *AggregateResult) EntryCount() int {
	n := 0
	for _, suite := range r.Results {
		for _, entries := range suite {
			n += len(entries)
		}
	}
	return n
}

// SuiteNames returns the suite names in sorted order
func (r *AggregateResult) SuiteNames() []string {
	names := make([]string, 0, len(r.Results))
	for name := range r.Results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TestIDs returns the test identifiers of a suite in sorted order
func (r *AggregateResult) TestIDs(suite string) []string {
	ids := make([]string, 0, len(r.Results[suite]))
	for id := range r.Results[suite] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entries returns the entries recorded for a suite/test pair
func (r *AggregateResult) Entries(suite, testID string) []*ResultEntry {
	if r.Results[suite] == nil {
		return nil
	}
	return r.Results[suite][testID]
}

// HumanElapsed renders the elapsed time in words, e.g. "3 seconds"
func (r *AggregateResult) HumanElapsed() string {
	return HumanizeDuration(r.ElapsedTime)
}

// HumanizeDuration renders a duration in words
func HumanizeDuration(d time.Duration) string {
	ref := time.Unix(0, 0)
	return strings.TrimSpace(humanize.RelTime(ref, ref.Add(d), "", ""))
}

// Report is the serialized form of an AggregateResult
type Report struct {
	RunID         string                  `json:"run_id" yaml:"run_id"`
	Status        TestStatus              `json:"status" yaml:"status"`
	TotalTests    int                     `json:"total_tests" yaml:"total_tests"`
	TotalBrowsers int                     `json:"total_browsers" yaml:"total_browsers"`
	Passed        int                     `json:"passed" yaml:"passed"`
	Failed        int                     `json:"failed" yaml:"failed"`
	ElapsedTime   string                  `json:"elapsed_time" yaml:"elapsed_time"`
	ElapsedMillis int64                   `json:"elapsed_ms" yaml:"elapsed_ms"`
	Results       map[string]SuiteResults `json:"results" yaml:"results"`
}

// Report converts the result into its serialized form
func (r *AggregateResult) Report() Report {
	results := r.Results
	if results == nil {
		results = map[string]SuiteResults{}
	}
	return Report{
		RunID:         r.RunID,
		Status:        r.Status,
		TotalTests:    r.TotalTests,
		TotalBrowsers: r.TotalBrowsers,
		Passed:        r.Passed,
		Failed:        r.Failed,
		ElapsedTime:   r.HumanElapsed(),
		ElapsedMillis: r.ElapsedTime.Milliseconds(),
		Results:       results,
	}
}

// MarshalJSON implements json.Marshaler
func (r *AggregateResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Report())
}
