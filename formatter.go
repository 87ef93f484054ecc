package browsertest

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

// ResultFormatter is responsible for formatting and displaying test results.
type ResultFormatter interface {
	FormatResults(envName string, result *types.AggregateResult) error
}

// ConsoleResultFormatter renders results as a table, one row per browser entry.
type ConsoleResultFormatter struct {
	logger log.Logger
	out    io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter writing to out,
// or to stdout when out is nil.
func NewConsoleResultFormatter(logger log.Logger, out io.Writer) *ConsoleResultFormatter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleResultFormatter{
		logger: logger,
		out:    out,
	}
}

// FormatResults formats and displays the test results.
func (f *ConsoleResultFormatter) FormatResults(envName string, result *types.AggregateResult) error {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Browser Test Results: %s (%s)", envName, result.HumanElapsed()))

	t.AppendHeader(table.Row{
		"Type", "ID", "Browser", "Duration", "Passed", "Failed", "Status", "Error",
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Browser", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, suiteName := range result.SuiteNames() {
		var passed, failed int
		var duration time.Duration
		for _, testID := range result.TestIDs(suiteName) {
			for _, entry := range result.Entries(suiteName, testID) {
				passed += boolToInt(entry.Passed())
				failed += boolToInt(!entry.Passed())
				duration += entry.Duration
			}
		}
		status := types.TestStatusPass
		if failed > 0 {
			status = types.TestStatusFail
		}

		t.AppendRow(table.Row{
			"Suite",
			suiteName,
			"",
			formatDuration(duration),
			passed,
			failed,
			getResultString(status),
			"",
		})

		testIDs := result.TestIDs(suiteName)
		for i, testID := range testIDs {
			prefix := "├──"
			if i == len(testIDs)-1 {
				prefix = "└──"
			}
			for j, entry := range result.Entries(suiteName, testID) {
				id := fmt.Sprintf("%s %s", prefix, testID)
				if j > 0 {
					// further browsers of the same test
					id = ""
				}
				t.AppendRow(table.Row{
					"Test",
					id,
					entryCapability(entry).String(),
					formatDuration(entry.Duration),
					boolToInt(entry.Passed()),
					boolToInt(!entry.Passed()),
					getResultString(entry.Status),
					extractKeyErrorMessage(entry.Message),
				})
			}
		}

		t.AppendSeparator()
	}

	if result.Status == types.TestStatusPass {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d tasks", result.TotalTests),
		fmt.Sprintf("%d browsers", result.TotalBrowsers),
		formatDuration(result.ElapsedTime),
		result.Passed,
		result.Failed,
		getResultString(result.Status),
		"",
	})

	t.Render()

	_, err := fmt.Fprintln(f.out, summaryLine(result))
	return err
}

func entryCapability(entry *types.ResultEntry) types.Capability {
	return types.Capability{
		Platform:       entry.Platform,
		BrowserName:    entry.Browser,
		BrowserVersion: entry.BrowserVersion,
	}
}

func summaryLine(result *types.AggregateResult) string {
	return fmt.Sprintf("Run %s %s: %d passed, %d failed of %d tasks on %d browsers in %s",
		result.RunID, result.Status, result.Passed, result.Failed, result.TotalTests, result.TotalBrowsers, result.HumanElapsed())
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
