package browsertest

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-browsertest/discovery"
	"github.com/ethereum-optimism/infra/op-browsertest/environment"
	"github.com/ethereum-optimism/infra/op-browsertest/runner"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// TestExecutor performs one complete run.
type TestExecutor interface {
	RunTests(ctx context.Context) (*types.AggregateResult, error)
}

// Runner is the part of runner.Runner the executor depends on
type Runner interface {
	Run(ctx context.Context, plan runner.Plan) (*types.AggregateResult, error)
}

// DefaultTestExecutor discovers suites afresh on every run, so test files
// added between periodic runs are picked up, and hands the plan to the runner.
type DefaultTestExecutor struct {
	runner    Runner
	env       *environment.Environment
	discovery discovery.Config
	filter    string
	logger    log.Logger
}

// NewDefaultTestExecutor creates a new DefaultTestExecutor.
func NewDefaultTestExecutor(r Runner, env *environment.Environment, disc discovery.Config, filter string, logger log.Logger) *DefaultTestExecutor {
	return &DefaultTestExecutor{
		runner:    r,
		env:       env,
		discovery: disc,
		filter:    filter,
		logger:    logger,
	}
}

// RunTests discovers the suites and runs them against the environment.
// Configuration errors are returned before any session is opened.
func (e *DefaultTestExecutor) RunTests(ctx context.Context) (*types.AggregateResult, error) {
	suites, err := discovery.Discover(e.discovery)
	if err != nil {
		return nil, fmt.Errorf("failed to discover tests in %s: %w", e.discovery.Root, err)
	}
	e.logger.Info("Discovered tests", "suites", len(suites), "tests", discovery.TestCount(suites), "filter", e.filter)

	result, err := e.runner.Run(ctx, runner.Plan{
		Environment: e.env,
		Suites:      suites,
		Filter:      e.filter,
	})
	if err != nil {
		e.logger.Error("Error running tests", "error", err)
		return nil, err
	}
	e.logger.Info("Test run completed", "run_id", result.RunID, "status", result.Status)
	return result, nil
}
