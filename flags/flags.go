package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "OP_BROWSERTEST"

var (
	Config = &cli.StringFlag{
		Name:     "config",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:    "Path to the environments file (eg. 'environments.yaml' or 'environments.toml')",
	}
	Environment = &cli.StringFlag{
		Name:     "env",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "ENV"),
		Usage:    "Name of the environment to run against (eg. 'staging')",
	}
	TestDir = &cli.StringFlag{
		Name:    "testdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TESTDIR"),
		Usage:   "Path to the test directory. Overrides test_dir from the environments file",
	}
	PluginDir = &cli.StringSliceFlag{
		Name:    "plugindir",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PLUGINDIR"),
		Usage:   "Directories to load session plugins from, in priority order. Overrides plugin_dir from the environments file",
	}
	Test = &cli.StringFlag{
		Name:    "test",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST"),
		Usage:   "Run only the test with this identifier",
	}
	MaxSessions = &cli.IntFlag{
		Name:    "max-sessions",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MAX_SESSIONS"),
		Usage:   "Maximum number of concurrent remote sessions. 0 uses max_sessions from the environment",
	}
	TaskTimeout = &cli.DurationFlag{
		Name:    "task-timeout",
		Value:   5 * time.Minute,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TASK_TIMEOUT"),
		Usage:   "Maximum time a single test may take on one browser, session setup included",
	}
	ReleaseTimeout = &cli.DurationFlag{
		Name:    "release-timeout",
		Value:   30 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RELEASE_TIMEOUT"),
		Usage:   "Maximum time allowed to close a remote session",
	}
	Report = &cli.StringFlag{
		Name:    "report",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT"),
		Usage:   "Write the run report to this path. Format follows the extension (.json, .yaml, .yml, .txt)",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "VERBOSE"),
		Usage:   "Log one line per completed test and browser as results arrive",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "show-progress",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_PROGRESS"),
		Usage:   "Log periodic progress updates while a run is in flight",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   30 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS_INTERVAL"),
		Usage:   "Interval between progress updates when --show-progress is set",
	}
	TestPattern = &cli.StringFlag{
		Name:    "test-pattern",
		Value:   "*Test.js",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST_PATTERN"),
		Usage:   "Filename pattern identifying test files inside suite directories",
	}
	PluginPattern = &cli.StringFlag{
		Name:    "plugin-pattern",
		Value:   "*.js",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PLUGIN_PATTERN"),
		Usage:   "Filename pattern identifying plugin files inside plugin directories",
	}
	HealthzPort = &cli.IntFlag{
		Name:    "healthz-port",
		Value:   8080,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_PORT"),
		Usage:   "Port for the /healthz and /status endpoints. 0 disables them",
	}
)

var requiredFlags = []cli.Flag{
	Config,
	Environment,
}

var optionalFlags = []cli.Flag{
	TestDir,
	PluginDir,
	Test,
	MaxSessions,
	TaskTimeout,
	ReleaseTimeout,
	Report,
	RunInterval,
	Verbose,
	ShowProgress,
	ProgressInterval,
	TestPattern,
	PluginPattern,
	HealthzPort,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
