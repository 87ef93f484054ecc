package reporting

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/acarl005/stripansi"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// TextFormatter renders a plain-text summary grouped by suite and test
type TextFormatter struct {
	includeDetails bool
	title          cases.Caser
}

// NewTextFormatter creates a text formatter. With includeDetails, failure
// messages, links and screenshots are printed under each entry.
func NewTextFormatter(includeDetails bool) *TextFormatter {
	return &TextFormatter{
		includeDetails: includeDetails,
		title:          cases.Title(language.English),
	}
}

// StatusLabel renders a status as a capitalized word, e.g. "Pass"
func (f *TextFormatter) StatusLabel(status types.TestStatus) string {
	if status == "" {
		return "Unknown"
	}
	return f.title.String(string(status))
}

func (f *TextFormatter) Format(w io.Writer, result *types.AggregateResult) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Run %s: %s\n", result.RunID, strings.ToUpper(string(result.Status)))
	fmt.Fprintf(bw, "Tests: %d  Browsers: %d  Passed: %d  Failed: %d  Elapsed: %s\n",
		result.TotalTests, result.TotalBrowsers, result.Passed, result.Failed, result.HumanElapsed())

	for _, suite := range result.SuiteNames() {
		fmt.Fprintf(bw, "\n%s\n", suite)
		for _, testID := range result.TestIDs(suite) {
			fmt.Fprintf(bw, "  %s\n", testID)
			for _, entry := range result.Entries(suite, testID) {
				f.writeEntry(bw, entry)
			}
		}
	}

	return bw.Flush()
}

func (f *TextFormatter) writeEntry(w io.Writer, entry *types.ResultEntry) {
	capability := types.Capability{
		Platform:       entry.Platform,
		BrowserName:    entry.Browser,
		BrowserVersion: entry.BrowserVersion,
	}
	line := fmt.Sprintf("    [%s] %s", f.StatusLabel(entry.Status), capability)
	if entry.FailureKind != types.FailureNone {
		line += fmt.Sprintf(" (%s)", entry.FailureKind)
	}
	fmt.Fprintln(w, line)

	if !f.includeDetails {
		return
	}
	if entry.Message != "" {
		for _, msg := range strings.Split(stripansi.Strip(entry.Message), "\n") {
			fmt.Fprintf(w, "      %s\n", msg)
		}
	}
	if entry.SessionID != "" {
		fmt.Fprintf(w, "      session: %s\n", entry.SessionID)
	}
	if entry.PublicLink != "" {
		fmt.Fprintf(w, "      link: %s\n", entry.PublicLink)
	}
	if entry.Screenshot != "" {
		fmt.Fprintf(w, "      screenshot: %s\n", entry.Screenshot)
	}
	if entry.ReportError != "" {
		fmt.Fprintf(w, "      report error: %s\n", stripansi.Strip(entry.ReportError))
	}
}
