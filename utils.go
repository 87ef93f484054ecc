package browsertest

import (
	"strings"

	"github.com/acarl005/stripansi"

	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

const maxErrorLength = 80

// Helper function to convert bool to int
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// getResultString returns a marked string representing the test result
func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	default:
		return "✗ fail"
	}
}

// extractKeyErrorMessage keeps the first line of a failure message, without
// terminal colors, trimmed to fit a table cell
func extractKeyErrorMessage(msg string) string {
	msg = strings.TrimSpace(stripansi.Strip(msg))
	if idx := strings.Index(msg, "\n"); idx != -1 {
		msg = strings.TrimSpace(msg[:idx])
	}
	if len(msg) > maxErrorLength {
		return msg[:maxErrorLength-3] + "..."
	}
	return msg
}
