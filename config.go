package browsertest

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-browsertest/environment"
	"github.com/ethereum-optimism/infra/op-browsertest/flags"
	"github.com/ethereum-optimism/infra/op-browsertest/types"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
	"github.com/ethereum/go-ethereum/log"
)

// Config holds the application configuration
type Config struct {
	EnvFile          string                   // Path to the environments file
	EnvName          string                   // Selected environment
	Environment      *environment.Environment // Selected environment, with flag overrides applied
	TestDir          string                   // Root of the suite directories
	PluginDirs       []string                 // Plugin directories, highest priority first
	TestFilter       string                   // Only run the test with this identifier
	TestPattern      string                   // Filename pattern of test files
	PluginPattern    string                   // Filename pattern of plugin files
	TaskTimeout      time.Duration            // Deadline for one test on one browser
	ReleaseTimeout   time.Duration            // Deadline for closing a session
	ReportPath       string                   // Optional report file; format follows the extension
	RunInterval      time.Duration            // Interval between test runs
	RunOnce          bool                     // Indicates if the service should exit after one test run
	Verbose          bool                     // Log each completed task
	ShowProgress     bool                     // Whether to show periodic progress updates during a run
	ProgressInterval time.Duration            // Interval between progress updates when ShowProgress is 'true'
	HealthzPort      int                      // 0 disables the healthz server
	MetricsConfig    opmetrics.CLIConfig
	Log              log.Logger
}

// NewConfig creates a new Config from cli context and the environments file it names
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	envFile, err := filepath.Abs(ctx.String(flags.Config.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for environments file '%s': %w", ctx.String(flags.Config.Name), err)
	}
	file, err := environment.Load(envFile)
	if err != nil {
		return nil, err
	}
	envName := ctx.String(flags.Environment.Name)
	env, err := file.Select(envName)
	if err != nil {
		return nil, err
	}
	if n := ctx.Int(flags.MaxSessions.Name); n != 0 {
		if n < 0 {
			return nil, fmt.Errorf("max-sessions must be positive, got %d", n)
		}
		env.MaxSessions = n
	}

	testDir := ctx.String(flags.TestDir.Name)
	if testDir == "" {
		testDir = file.TestDir
	}
	if testDir == "" {
		return nil, errors.New("test directory is required (--testdir or test_dir in the environments file)")
	}
	absTestDir, err := filepath.Abs(testDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", testDir, err)
	}

	pluginDirs := append([]string(nil), ctx.StringSlice(flags.PluginDir.Name)...)
	if len(pluginDirs) == 0 && file.PluginDir != "" {
		pluginDirs = []string{file.PluginDir}
	}
	for i, dir := range pluginDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for plugin directory '%s': %w", dir, err)
		}
		pluginDirs[i] = abs
	}

	taskTimeout := ctx.Duration(flags.TaskTimeout.Name)
	if taskTimeout <= 0 {
		return nil, fmt.Errorf("task-timeout must be positive, got %s", taskTimeout)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)

	return &Config{
		EnvFile:          envFile,
		EnvName:          envName,
		Environment:      env,
		TestDir:          absTestDir,
		PluginDirs:       pluginDirs,
		TestFilter:       ctx.String(flags.Test.Name),
		TestPattern:      ctx.String(flags.TestPattern.Name),
		PluginPattern:    ctx.String(flags.PluginPattern.Name),
		TaskTimeout:      taskTimeout,
		ReleaseTimeout:   ctx.Duration(flags.ReleaseTimeout.Name),
		ReportPath:       ctx.String(flags.Report.Name),
		RunInterval:      runInterval,
		RunOnce:          runInterval == 0,
		Verbose:          ctx.Bool(flags.Verbose.Name),
		ShowProgress:     ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		HealthzPort:      ctx.Int(flags.HealthzPort.Name),
		MetricsConfig:    opmetrics.ReadCLIConfig(ctx),
		Log:              log,
	}, nil
}

// Snapshot returns the effective configuration without credentials
func (c *Config) Snapshot() types.EffectiveConfigSnapshot {
	s := types.EffectiveConfigSnapshot{
		Runner: types.RunnerConfigSnapshot{
			TaskTimeout:      c.TaskTimeout,
			ReleaseTimeout:   c.ReleaseTimeout,
			Verbose:          c.Verbose,
			ShowProgress:     c.ShowProgress,
			ProgressInterval: c.ProgressInterval,
		},
		Execution: types.ExecutionConfigSnapshot{
			RunInterval: c.RunInterval,
			RunOnce:     c.RunOnce,
			TestFilter:  c.TestFilter,
			TestPattern: c.TestPattern,
		},
		Paths: types.PathsConfigSnapshot{
			EnvFile:    c.EnvFile,
			TestDir:    c.TestDir,
			PluginDirs: c.PluginDirs,
			ReportPath: c.ReportPath,
		},
	}
	if env := c.Environment; env != nil {
		s.Runner.MaxSessions = env.MaxSessions
		s.Target = types.TargetConfigSnapshot{
			Environment: c.EnvName,
			URL:         env.URL,
			Endpoint:    env.Endpoint().Address(),
			Browsers:    env.Browsers,
			RemoteGrid:  env.RemoteGrid != nil,
			Screenshots: env.ScreenshotsEnabled(),
		}
		s.Paths.ScreenshotsPath = env.ScreenshotsPath
	}
	return s
}
