package reporter

import (
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-reporter/runner"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// ResultFormatter is responsible for formatting and displaying replay results.
type ResultFormatter interface {
	FormatResults(result *runner.ReplayResult) error
}

// ConsoleResultFormatter prints a step summary table of a replay.
type ConsoleResultFormatter struct {
	logger log.Logger
	out    io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter(logger log.Logger, out io.Writer) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
		out:    out,
	}
}

// FormatResults renders one row per step status, with a total footer.
func (f *ConsoleResultFormatter) FormatResults(result *runner.ReplayResult) error {
	f.logger.Debug("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("Replay Results %s (%s)", result.RunID, formatDuration(result.Duration)))

	t.AppendHeader(table.Row{"Status", "Steps", "Share"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Steps", Align: text.AlignRight},
		{Name: "Share", Align: text.AlignRight},
	})

	total := result.Steps.Total()
	for _, status := range types.Statuses {
		count := result.Steps.Get(status)
		t.AppendRow(table.Row{string(status), count, share(count, total)})
	}

	if result.HasFailures() {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}

	t.AppendFooter(table.Row{"TOTAL", total, fmt.Sprintf("%d events", result.Events)})
	t.Render()
	return nil
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func share(count, total int) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(count)*100/float64(total))
}
