// Package types contains shared types used across the browser test runner
package types

import "fmt"

// TestStatus represents the possible outcomes of a task
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
)

// FailureKind distinguishes why a task failed
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureAssertion FailureKind = "assertion" // the test procedure returned an error
	FailureSession   FailureKind = "session"   // the remote session could not be driven
	FailureTimeout   FailureKind = "timeout"   // the task exceeded its deadline
	FailureCancelled FailureKind = "cancelled" // the run was cancelled before the task started
)

// Capability describes one requested session shape. All fields are optional.
type Capability struct {
	Platform       string `yaml:"platform,omitempty" toml:"platform" json:"platform,omitempty"`
	BrowserName    string `yaml:"browserName,omitempty" toml:"browserName" json:"browserName,omitempty"`
	BrowserVersion string `yaml:"browserVersion,omitempty" toml:"browserVersion" json:"browserVersion,omitempty"`
}

// String renders a human label such as "chrome 120 on Windows 10"
func (c Capability) String() string {
	name := c.BrowserName
	if name == "" {
		name = "any browser"
	}
	if c.BrowserVersion != "" {
		name = fmt.Sprintf("%s %s", name, c.BrowserVersion)
	}
	if c.Platform != "" {
		name = fmt.Sprintf("%s on %s", name, c.Platform)
	}
	return name
}
