// Package exitcodes defines the standard exit codes used by op-browsertest.
package exitcodes

// Exit code constants used by op-browsertest
//
// * Success (0): Used when every test passed on every browser
// * TestFailure (1): Used when one or more tasks failed
// * RuntimeErr (2): Used for configuration errors, panics and other failures to run
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime or configuration errors
)
