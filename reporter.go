package browsertest

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-browsertest/reporting"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// ResultReporter persists the result of a run outside the process.
type ResultReporter interface {
	ReportResults(result *types.AggregateResult) error
}

// FileResultReporter writes each run's result to a report file. The format
// follows the file extension.
type FileResultReporter struct {
	path   string
	logger log.Logger
}

// NewFileResultReporter creates a FileResultReporter. The path's extension is
// checked up front so a typo fails before the first run.
func NewFileResultReporter(path string, logger log.Logger) (*FileResultReporter, error) {
	if _, err := reporting.FormatForPath(path); err != nil {
		return nil, err
	}
	return &FileResultReporter{path: path, logger: logger}, nil
}

// ReportResults writes the result, replacing the previous run's report.
func (r *FileResultReporter) ReportResults(result *types.AggregateResult) error {
	if err := reporting.WriteFile(r.path, result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	r.logger.Info("Wrote report", "path", r.path, "run_id", result.RunID)
	return nil
}
