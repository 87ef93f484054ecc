package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-browsertest/discovery"
	"github.com/ethereum-optimism/infra/op-browsertest/environment"
	"github.com/ethereum-optimism/infra/op-browsertest/metrics"
	"github.com/ethereum-optimism/infra/op-browsertest/registry"
	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// Plan is the input of a single run
type Plan struct {
	Environment *environment.Environment
	Suites      []discovery.Suite
	// Filter, when set, keeps only the tests with this ID
	Filter string
}

// Config holds configuration for creating a new runner
type Config struct {
	Registry *registry.Registry
	Dialer   session.Dialer
	Log      log.Logger
	// Reporter, when set, receives every entry with a session ID after the
	// run is finalized
	Reporter JobReporter
	Progress ProgressIndicator

	TaskTimeout    time.Duration
	ReleaseTimeout time.Duration
}

// Runner executes plans. It is safe to call Run repeatedly; runs share the
// registry and dialer but nothing else.
type Runner struct {
	registry       *registry.Registry
	dialer         session.Dialer
	log            log.Logger
	reporter       JobReporter
	progress       ProgressIndicator
	taskTimeout    time.Duration
	releaseTimeout time.Duration
	tracer         trace.Tracer
}

// New creates a new runner
func New(cfg Config) (*Runner, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Dialer == nil {
		return nil, fmt.Errorf("session dialer is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Progress == nil {
		cfg.Progress = NewNoOpProgressIndicator()
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = DefaultReleaseTimeout
	}

	cfg.Log.Debug("runner.New()", "taskTimeout", cfg.TaskTimeout, "releaseTimeout", cfg.ReleaseTimeout,
		"reporter", cfg.Reporter != nil, "operations", len(cfg.Registry.Names()))

	return &Runner{
		registry:       cfg.Registry,
		dialer:         cfg.Dialer,
		log:            cfg.Log,
		reporter:       cfg.Reporter,
		progress:       cfg.Progress,
		taskTimeout:    cfg.TaskTimeout,
		releaseTimeout: cfg.ReleaseTimeout,
		tracer:         otel.Tracer("browser test runner"),
	}, nil
}

// Run executes the plan and returns the aggregate result. An error is only
// returned when the plan is invalid, before any session is opened. Test
// failures, session faults and cancellation are reported as entries.
func (r *Runner) Run(ctx context.Context, plan Plan) (*types.AggregateResult, error) {
	if err := validatePlan(plan); err != nil {
		return nil, err
	}

	env := plan.Environment
	runID := uuid.New().String()
	start := time.Now()
	logger := r.log.New("run_id", runID, "environment", env.Name)

	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("run %s", env.Name))
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID))

	tasks := expandTasks(plan)
	agg := NewAggregator(runID, start, len(env.Browsers))

	logger.Info("Starting run", "tasks", len(tasks), "browsers", len(env.Browsers), "maxSessions", env.MaxSessions)
	r.progress.StartRun(runID, len(tasks))

	if len(tasks) > 0 {
		exec := newParallelExecutor(r, env, logger)
		exec.execute(ctx, tasks, agg)
	}

	result := agg.Finalize(len(tasks))

	if r.reporter != nil {
		r.reportJobs(ctx, logger, agg.Entries())
	}

	r.progress.CompleteRun(result)
	metrics.RecordRun(env.Name, runID, string(result.Status), result.TotalTests, result.Passed, result.Failed, result.ElapsedTime)
	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.Int("passed", result.Passed),
		attribute.Int("failed", result.Failed),
	)
	logger.Info("Run complete", "status", result.Status, "passed", result.Passed, "failed", result.Failed,
		"elapsed", result.HumanElapsed())
	return result, nil
}

// RunWithCallback runs the plan and hands the result to done exactly once.
// done is not called when the plan is invalid.
func (r *Runner) RunWithCallback(ctx context.Context, plan Plan, done func(*types.AggregateResult)) error {
	result, err := r.Run(ctx, plan)
	if err != nil {
		return err
	}
	if done != nil {
		done(result)
	}
	return nil
}

func validatePlan(plan Plan) error {
	if plan.Environment == nil {
		return types.ConfigurationErrorf("no environment selected")
	}
	if plan.Environment.MaxSessions < 1 {
		return types.ConfigurationErrorf("environment %q: max sessions must be at least 1, got %d",
			plan.Environment.Name, plan.Environment.MaxSessions)
	}
	seen := make(map[string]bool, len(plan.Suites))
	for _, s := range plan.Suites {
		if s.Name == "" {
			return types.ConfigurationErrorf("suite name must not be empty")
		}
		if seen[s.Name] {
			return types.ConfigurationErrorf("duplicate suite %q", s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}
