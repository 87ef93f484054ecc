package remotegrid

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/ethereum-optimism/infra/op-browsertest/metrics"
	"github.com/ethereum-optimism/infra/op-browsertest/runner"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

const (
	DefaultMaxConcurrent = 4
	DefaultRateLimit     = 5.0
)

// API is the part of the grid REST API the reporter needs
type API interface {
	FetchJob(ctx context.Context, sessionID string) (*Job, error)
	CreatePublicLink(ctx context.Context, jobID string) (string, error)
	UpdateJob(ctx context.Context, sessionID string, fields map[string]any) error
}

// ReporterConfig configures a Reporter
type ReporterConfig struct {
	Client        API
	Log           log.Logger
	MaxConcurrent int
	// RateLimit is the number of entries processed per second
	RateLimit float64
}

// Reporter attaches public links to finished entries and records their outcome
// on the grid. Every entry is attempted; a failure on one does not affect the
// others.
type Reporter struct {
	client        API
	log           log.Logger
	maxConcurrent int
	limiter       *rate.Limiter
}

var _ runner.JobReporter = (*Reporter)(nil)

// NewReporter creates a new Reporter
func NewReporter(cfg ReporterConfig) (*Reporter, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("remote grid client is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	return &Reporter{
		client:        cfg.Client,
		log:           cfg.Log.New("component", "remote-grid-reporter"),
		maxConcurrent: cfg.MaxConcurrent,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.MaxConcurrent),
	}, nil
}

// Report implements runner.JobReporter. The returned error joins every
// per-entry failure; each failure is also stored on its entry.
func (r *Reporter) Report(ctx context.Context, entries []runner.ReportableEntry) error {
	p := pool.New().
		WithErrors().
		WithMaxGoroutines(r.maxConcurrent).
		WithContext(ctx)

	for _, e := range entries {
		if e.Entry == nil || e.Entry.SessionID == "" {
			continue
		}
		p.Go(func(ctx context.Context) error {
			err := r.reportEntry(ctx, e)
			metrics.RecordRemoteReport(err)
			if err != nil {
				e.Entry.ReportError = err.Error()
				r.log.Warn("Failed to report job", "suite", e.Suite, "test", e.TestID, "session", e.Entry.SessionID, "error", err)
			}
			return err
		})
	}
	return p.Wait()
}

func (r *Reporter) reportEntry(ctx context.Context, e runner.ReportableEntry) error {
	id := e.Entry.SessionID
	if err := r.limiter.Wait(ctx); err != nil {
		return types.NewReportingFault(id, "rate limit", err)
	}

	job, err := r.client.FetchJob(ctx, id)
	if err != nil {
		return types.NewReportingFault(id, "fetch job", err)
	}
	link, err := r.client.CreatePublicLink(ctx, job.ID)
	if err != nil {
		return types.NewReportingFault(id, "create public link", err)
	}
	e.Entry.PublicLink = link

	fields := map[string]any{
		"name":   fmt.Sprintf("%s/%s", e.Suite, e.TestID),
		"passed": e.Entry.Passed(),
	}
	if err := r.client.UpdateJob(ctx, id, fields); err != nil {
		return types.NewReportingFault(id, "update job", err)
	}
	r.log.Debug("Reported job", "session", id, "link", link)
	return nil
}
