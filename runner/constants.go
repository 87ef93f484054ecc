package runner

import "time"

const (
	// DefaultTaskTimeout bounds a single task from session open to outcome
	DefaultTaskTimeout = 5 * time.Minute

	// DefaultReleaseTimeout bounds the session close and screenshot calls,
	// which run detached from the task deadline
	DefaultReleaseTimeout = 30 * time.Second

	// MaxReasonableConcurrency is the session count above which a warning is logged
	MaxReasonableConcurrency = 32

	screenshotExt = ".png"
)
