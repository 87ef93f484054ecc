package types

import "time"

// EffectiveConfigSnapshot represents the effective runtime configuration grouped by domain.
// Credentials are never part of it.
type EffectiveConfigSnapshot struct {
	Runner    RunnerConfigSnapshot    `json:"runner"`
	Target    TargetConfigSnapshot    `json:"target"`
	Execution ExecutionConfigSnapshot `json:"execution"`
	Paths     PathsConfigSnapshot     `json:"paths"`
}

type RunnerConfigSnapshot struct {
	MaxSessions      int           `json:"maxSessions"`
	TaskTimeout      time.Duration `json:"taskTimeout"`
	ReleaseTimeout   time.Duration `json:"releaseTimeout"`
	Verbose          bool          `json:"verbose"`
	ShowProgress     bool          `json:"showProgress"`
	ProgressInterval time.Duration `json:"progressInterval"`
}

type TargetConfigSnapshot struct {
	Environment string       `json:"environment"`
	URL         string       `json:"url"`
	Endpoint    string       `json:"endpoint"`
	Browsers    []Capability `json:"browsers"`
	RemoteGrid  bool         `json:"remoteGrid"`
	Screenshots bool         `json:"screenshots"`
}

type ExecutionConfigSnapshot struct {
	RunInterval time.Duration `json:"runInterval"`
	RunOnce     bool          `json:"runOnce"`
	TestFilter  string        `json:"testFilter,omitempty"`
	TestPattern string        `json:"testPattern"`
}

type PathsConfigSnapshot struct {
	EnvFile         string   `json:"envFile"`
	TestDir         string   `json:"testDir"`
	PluginDirs      []string `json:"pluginDirs"`
	ReportPath      string   `json:"reportPath,omitempty"`
	ScreenshotsPath string   `json:"screenshotsPath,omitempty"`
}
