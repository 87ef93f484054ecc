// Package runner expands discovered suites against an environment's browser
// capabilities and executes every resulting task on its own remote session.
//
// The main components are:
//   - Runner: validates a plan, expands it into tasks and returns the aggregate result
//   - parallelExecutor: a bounded worker pool feeding a single collector loop
//   - Aggregator: builds the suite/test/entry hierarchy and the final totals
//   - ProgressIndicator: reports run progress while tasks execute
//
// Each task runs the session lifecycle in lifecycle.go: open, configure,
// navigate, invoke, optional screenshot and release. Every scheduled task
// produces exactly one result entry, whether it passed, failed, timed out or
// was cancelled before it started.
package runner
