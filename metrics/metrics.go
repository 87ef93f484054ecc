package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-browsertest/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "browsertest"
)

var (
	Debug                bool = false
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tasks_total",
		Help:      "Count of executed (suite, test, browser) tasks",
	}, []string{
		"environment",
		"suite",
		"browser",
		"platform",
		"result",
		"failure_kind",
	})

	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "task_duration_seconds",
		Help:      "Duration of a single task including session setup and release",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{
		"environment",
		"browser",
	})

	activeSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "active_sessions",
		Help:      "Number of remote sessions currently open",
	}, []string{
		"environment",
	})

	sessionReleaseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "session_release_errors_total",
		Help:      "Count of remote sessions that failed to close cleanly",
	}, []string{
		"environment",
	})

	reportingTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "remote_reports_total",
		Help:      "Count of remote grid job updates",
	}, []string{
		"result",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of a run",
	}, []string{
		"environment",
		"run_id",
		"result",
	})

	runTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_total",
		Help:      "Total number of scheduled tasks",
	}, []string{
		"environment",
	})

	runTestPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_passed",
		Help:      "Number of passed tasks",
	}, []string{
		"environment",
	})

	runTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_failed",
		Help:      "Number of failed tasks",
	}, []string{
		"environment",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of the last run",
	}, []string{
		"environment",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordTask records the outcome of one task
func RecordTask(env string, suite string, c types.Capability, result types.TestStatus, kind types.FailureKind, duration time.Duration) {
	if !isValidResult(result) {
		log.Error("RecordTask - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tasks_total",
			"environment", env,
			"suite", suite,
			"browser", c.BrowserName,
			"result", result)
	}
	tasksTotal.WithLabelValues(env, suite, c.BrowserName, c.Platform, string(result), string(kind)).Inc()
	taskDuration.WithLabelValues(env, c.BrowserName).Observe(duration.Seconds())
}

func SessionOpened(env string) {
	activeSessions.WithLabelValues(env).Inc()
}

func SessionClosed(env string) {
	activeSessions.WithLabelValues(env).Dec()
}

func RecordReleaseError(env string) {
	sessionReleaseErrors.WithLabelValues(env).Inc()
}

// RecordRemoteReport counts one remote job update attempt
func RecordRemoteReport(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	reportingTotal.WithLabelValues(result).Inc()
}

func RecordRun(
	env string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	duration time.Duration,
) {
	runResults.WithLabelValues(env, runID, result).Set(1)
	runTestTotal.WithLabelValues(env).Add(float64(total))
	runTestPassed.WithLabelValues(env).Add(float64(passed))
	runTestFailed.WithLabelValues(env).Add(float64(failed))
	runDuration.WithLabelValues(env).Set(duration.Seconds())
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
