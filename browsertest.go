// Package browsertest runs browser test suites against a remote automation
// grid, once or periodically, and reports the aggregate result.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-browsertest/discovery"
	"github.com/ethereum-optimism/infra/op-browsertest/registry"
	"github.com/ethereum-optimism/infra/op-browsertest/remotegrid"
	"github.com/ethereum-optimism/infra/op-browsertest/runner"
	"github.com/ethereum-optimism/infra/op-browsertest/service"
	"github.com/ethereum-optimism/infra/op-browsertest/session"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
	"github.com/ethereum-optimism/infra/op-browsertest/webdriver"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// App implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &App{}

// App runs the configured environment's suites on a schedule.
type App struct {
	config    *Config
	version   string
	registry  *registry.Registry
	runner    *runner.Runner
	executor  TestExecutor
	formatter ResultFormatter
	reporter  ResultReporter
	scheduler TestScheduler
	progress  *runner.ConsoleProgressIndicator
	board     *service.StatusBoard
	service   *service.Service

	mu     sync.Mutex
	result *types.AggregateResult

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

type options struct {
	dialer      session.Dialer
	resolver    discovery.Resolver
	jobReporter runner.JobReporter
	output      io.Writer
	board       *service.StatusBoard
}

// Option customizes the collaborators of an App
type Option func(*options)

// WithDialer replaces the WebDriver dialer
func WithDialer(d session.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithResolver replaces the procedure resolver used by discovery
func WithResolver(r discovery.Resolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithJobReporter replaces the remote grid reporter
func WithJobReporter(r runner.JobReporter) Option {
	return func(o *options) { o.jobReporter = r }
}

// WithOutput sends the results table to w instead of stdout
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithStatusBoard shares a status board with an externally managed service
func WithStatusBoard(b *service.StatusBoard) Option {
	return func(o *options) { o.board = b }
}

// New wires an App from its configuration.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error), opts ...Option) (*App, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		config.Log = log.New()
	}
	if err := config.Environment.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	config.Log.Debug("Creating browser test app with config", "snapshot", config.Snapshot())

	reg, err := registry.Load(registry.Config{
		Log:           config.Log,
		PluginPattern: config.PluginPattern,
	}, config.PluginDirs...)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	if o.dialer == nil {
		o.dialer = webdriver.NewDialer(webdriver.Config{Log: config.Log})
	}
	if o.jobReporter == nil && config.Environment.RemoteGrid != nil {
		grid := config.Environment.RemoteGrid
		o.jobReporter, err = remotegrid.NewReporter(remotegrid.ReporterConfig{
			Client: remotegrid.NewClient(remotegrid.ClientConfig{
				Username: grid.Username,
				Password: grid.Password,
				APIURL:   grid.APIURL,
			}),
			Log:           config.Log,
			MaxConcurrent: grid.MaxConcurrent,
			RateLimit:     grid.RateLimit,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create remote grid reporter: %w", err)
		}
	}

	var progress *runner.ConsoleProgressIndicator
	var indicator runner.ProgressIndicator
	if config.ShowProgress || config.Verbose {
		progress = runner.NewConsoleProgressIndicator(config.Log, config.ProgressInterval, config.Verbose)
		indicator = progress
	}

	testRunner, err := runner.New(runner.Config{
		Registry:       reg,
		Dialer:         o.dialer,
		Log:            config.Log,
		Reporter:       o.jobReporter,
		Progress:       indicator,
		TaskTimeout:    config.TaskTimeout,
		ReleaseTimeout: config.ReleaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}

	var reporter ResultReporter
	if config.ReportPath != "" {
		reporter, err = NewFileResultReporter(config.ReportPath, config.Log)
		if err != nil {
			return nil, fmt.Errorf("invalid report path: %w", err)
		}
	}

	board := o.board
	if board == nil {
		board = service.NewStatusBoard()
	}

	a := &App{
		config:   config,
		version:  version,
		registry: reg,
		runner:   testRunner,
		executor: NewDefaultTestExecutor(testRunner, config.Environment, discovery.Config{
			Root:     config.TestDir,
			Pattern:  config.TestPattern,
			Resolver: o.resolver,
			Log:      config.Log,
		}, config.TestFilter, config.Log),
		formatter:        NewConsoleResultFormatter(config.Log, o.output),
		reporter:         reporter,
		scheduler:        NewDefaultTestScheduler(config.RunInterval, config.RunOnce, config.Log),
		progress:         progress,
		board:            board,
		shutdownCallback: shutdownCallback,
	}
	if config.HealthzPort > 0 || config.MetricsConfig.Enabled {
		a.service = service.New(service.Config{
			HealthzPort:    config.HealthzPort,
			MetricsEnabled: config.MetricsConfig.Enabled,
			MetricsAddr:    config.MetricsConfig.ListenAddr,
			MetricsPort:    config.MetricsConfig.ListenPort,
			Board:          board,
			Log:            config.Log,
		})
	}
	a.scheduler.RegisterCallback(a.runTests)

	config.Log.Info("Created browser test app", "environment", config.Environment, "operations", len(reg.Names()))
	return a, nil
}

// Start runs the suites immediately and then, unless in run-once mode, on the
// configured interval.
// Start implements the cliapp.Lifecycle interface.
func (a *App) Start(ctx context.Context) error {
	a.running.Store(true)
	if a.service != nil {
		a.service.Start()
	}

	if a.config.RunOnce {
		a.config.Log.Info("Starting op-browsertest in run-once mode")
	} else {
		a.config.Log.Info("Starting op-browsertest in continuous mode", "interval", a.config.RunInterval)
	}

	if err := a.scheduler.Start(ctx); err != nil {
		a.running.Store(false)
		a.config.Log.Error("Runtime error running tests", "error", err)
		return NewRuntimeError(err)
	}

	if !a.config.RunOnce {
		a.config.Log.Debug("op-browsertest started successfully")
		return nil
	}

	a.config.Log.Info("Tests completed, exiting (run-once mode)")
	result := a.Result()
	if result != nil && result.Status == types.TestStatusFail {
		a.config.Log.Warn("Run-once test run completed with failures, returning exit code 1")
		return NewTestFailureError(result)
	}

	// Only need to call this when we're in run-once mode and all tests passed
	if a.shutdownCallback != nil {
		go a.shutdownCallback(nil)
	}
	return nil
}

// runTests runs all tests and processes the results
func (a *App) runTests(ctx context.Context) error {
	a.board.RunStarted()
	result, err := a.executor.RunTests(ctx)
	a.board.RunFinished(a.config.EnvName, result)
	if err != nil {
		// configuration problems, not test failures
		return err
	}

	a.mu.Lock()
	a.result = result
	a.mu.Unlock()

	if err := a.formatter.FormatResults(a.config.EnvName, result); err != nil {
		a.config.Log.Error("Failed to print results", "error", err)
	}
	if a.reporter != nil {
		if err := a.reporter.ReportResults(result); err != nil {
			a.config.Log.Error("Failed to report results", "error", err)
		}
	}
	return nil
}

// Result returns the result of the most recent run
func (a *App) Result() *types.AggregateResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.result
}

// Stop stops the op-browsertest service.
// Stop implements the cliapp.Lifecycle interface.
func (a *App) Stop(ctx context.Context) error {
	a.config.Log.Info("Stopping op-browsertest")

	if !a.running.Load() {
		a.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	a.running.Store(false)

	if err := a.scheduler.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	if a.progress != nil {
		a.progress.Stop()
	}
	if a.service != nil {
		a.service.Shutdown(ctx)
	}

	a.config.Log.Info("op-browsertest stopped successfully")
	return nil
}

// Stopped returns true if the op-browsertest service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (a *App) Stopped() bool {
	return !a.running.Load()
}

// WaitForShutdown blocks until the periodic runner has terminated.
func (a *App) WaitForShutdown(ctx context.Context) error {
	return a.scheduler.WaitForShutdown(ctx)
}
