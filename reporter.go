package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/ethereum-optimism/infra/op-reporter/ansi"
	"github.com/ethereum-optimism/infra/op-reporter/flags"
	"github.com/ethereum-optimism/infra/op-reporter/logging"
	"github.com/ethereum-optimism/infra/op-reporter/metrics"
	"github.com/ethereum-optimism/infra/op-reporter/reporting"
	"github.com/ethereum-optimism/infra/op-reporter/runner"
)

// MetricsReporter is responsible for reporting metrics from replay results.
type MetricsReporter interface {
	ReportResults(result *runner.ReplayResult) error
}

// DefaultMetricsReporter writes the collected metrics to a node exporter textfile.
// Replay and step counters are recorded while the replay runs.
type DefaultMetricsReporter struct {
	textfile string
}

// NewDefaultMetricsReporter creates a new DefaultMetricsReporter. An empty path disables it.
func NewDefaultMetricsReporter(textfile string) *DefaultMetricsReporter {
	return &DefaultMetricsReporter{textfile: textfile}
}

// ReportResults flushes the metrics of result.
func (r *DefaultMetricsReporter) ReportResults(result *runner.ReplayResult) error {
	if r.textfile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(r.textfile); err != nil {
		return fmt.Errorf("failed to write metrics for run %s: %w", result.RunID, err)
	}
	return nil
}

// Reporter replays a recorded run into the configured report formats.
type Reporter struct {
	config  *Config
	stdin   io.Reader
	stdout  io.Writer
	escapes *ansi.Table

	metrics   MetricsReporter
	formatter ResultFormatter
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithStreams replaces stdin and stdout.
func WithStreams(stdin io.Reader, stdout io.Writer) Option {
	return func(r *Reporter) {
		r.stdin = stdin
		r.stdout = stdout
	}
}

// WithEscapes sets the escape table used by the pretty format.
func WithEscapes(escapes *ansi.Table) Option {
	return func(r *Reporter) {
		r.escapes = escapes
	}
}

// WithMetricsReporter replaces the default metrics reporter.
func WithMetricsReporter(m MetricsReporter) Option {
	return func(r *Reporter) {
		r.metrics = m
	}
}

// WithResultFormatter replaces the console summary.
func WithResultFormatter(f ResultFormatter) Option {
	return func(r *Reporter) {
		r.formatter = f
	}
}

func New(config *Config, opts ...Option) (*Reporter, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	r := &Reporter{
		config: config,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.escapes == nil {
		aliases, err := ansi.ParseAliases(config.Colors)
		if err != nil {
			return nil, err
		}
		if r.escapes, err = ansi.NewTable(aliases); err != nil {
			return nil, err
		}
	}
	if r.metrics == nil {
		r.metrics = NewDefaultMetricsReporter(config.MetricsTextfile)
	}
	if r.formatter == nil {
		r.formatter = NewConsoleResultFormatter(config.Log, r.stdout)
	}

	config.Log.Debug("Creating reporter",
		"events", config.EventsPath,
		"formats", config.Formats,
		"htmlOut", config.HTMLOut,
		"color", config.ColorMode)
	return r, nil
}

// Run replays the events once. Failing or undefined steps return a TestFailureError,
// anything that prevents a complete report returns a RuntimeError. The result is
// returned whenever the replay started.
func (r *Reporter) Run(ctx context.Context) (*runner.ReplayResult, error) {
	in, closeIn, err := r.openEvents()
	if err != nil {
		return nil, NewRuntimeError(err)
	}
	defer closeIn()

	runID := r.config.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	var archive *logging.RunArchive
	if r.config.ArchiveDir != "" {
		if archive, err = logging.NewRunArchive(r.config.ArchiveDir, runID); err != nil {
			return nil, NewRuntimeError(fmt.Errorf("failed to create archive: %w", err))
		}
		in = archive.Tee(in)
	}

	formatters, err := r.buildFormatters(runID)
	if err != nil {
		if archive != nil {
			_ = archive.Close()
		}
		return nil, NewRuntimeError(err)
	}
	replayer, err := runner.NewReplayer(runner.Config{
		Log:        r.config.Log,
		Formatters: formatters,
		RunID:      runID,
	})
	if err != nil {
		closeAll(formatters)
		if archive != nil {
			_ = archive.Close()
		}
		return nil, NewRuntimeError(fmt.Errorf("failed to create replayer: %w", err))
	}

	result, err := replayer.Replay(ctx, in)
	if archive != nil {
		// the archive keeps the whole stream, including input after the close event
		if _, dErr := io.Copy(io.Discard, in); dErr != nil {
			r.config.Log.Warn("Failed to archive trailing input", "err", dErr)
		}
		if aErr := archive.Close(); aErr != nil {
			err = errors.Join(err, aErr)
		} else {
			r.config.Log.Info("Archived events", "path", archive.EventsPath())
		}
	}
	if mErr := r.metrics.ReportResults(result); mErr != nil {
		err = errors.Join(err, mErr)
	}
	if err != nil {
		return result, NewRuntimeError(fmt.Errorf("failed to replay events: %w", err))
	}

	if r.showSummary() {
		if err := r.formatter.FormatResults(result); err != nil {
			return result, NewRuntimeError(fmt.Errorf("failed to print results: %w", err))
		}
	}
	if result.HasFailures() {
		r.config.Log.Warn("Run has failing steps", "run_id", result.RunID, "steps", result.Steps.String())
		return result, NewTestFailureError(result.RunID, result.Steps.Failed, result.Steps.Undefined)
	}
	return result, nil
}

func (r *Reporter) openEvents() (io.Reader, func(), error) {
	if r.config.EventsPath == StdStream {
		return r.stdin, func() {}, nil
	}
	f, err := os.Open(r.config.EventsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open events: %w", err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			r.config.Log.Warn("Failed to close events file", "err", err)
		}
	}, nil
}

func (r *Reporter) buildFormatters(runID string) ([]reporting.Formatter, error) {
	var formatters []reporting.Formatter
	for _, format := range r.config.Formats {
		f, err := r.newFormatter(format, runID)
		if err != nil {
			closeAll(formatters)
			return nil, fmt.Errorf("failed to create %s formatter: %w", format, err)
		}
		formatters = append(formatters, f)
	}
	return formatters, nil
}

func (r *Reporter) newFormatter(format flags.Format, runID string) (reporting.Formatter, error) {
	switch format {
	case flags.FormatPretty:
		return reporting.NewPrettyFormatter(r.stdout, reporting.PrettyConfig{
			Colors:        r.useColor(),
			Escapes:       r.escapes,
			HideLocations: r.config.HideLocations,
			Log:           r.config.Log,
		}), nil
	case flags.FormatHTML:
		opts := []reporting.HTMLOption{
			reporting.WithTitle(r.config.Title),
			reporting.WithRunID(runID),
			reporting.WithLogger(r.config.Log),
		}
		if r.config.HTMLTemplate != "" {
			content, err := os.ReadFile(r.config.HTMLTemplate)
			if err != nil {
				return nil, fmt.Errorf("failed to read template: %w", err)
			}
			opts = append(opts, reporting.WithTemplate(string(content)))
		}
		open := reporting.FileOpener(r.config.HTMLOut)
		if r.config.HTMLOut == StdStream {
			open = reporting.WriterOpener(r.stdout)
		}
		return reporting.NewHTMLFormatter(open, opts...)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

// useColor resolves the color mode; auto colors only terminals.
func (r *Reporter) useColor() bool {
	switch r.config.ColorMode {
	case flags.ColorAlways:
		return true
	case flags.ColorNever:
		return false
	}
	f, ok := r.stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// showSummary is false when stdout already carries a report.
func (r *Reporter) showSummary() bool {
	if r.config.HasFormat(flags.FormatPretty) {
		return false
	}
	return !(r.config.HasFormat(flags.FormatHTML) && r.config.HTMLOut == StdStream)
}

func closeAll(formatters []reporting.Formatter) {
	for _, f := range formatters {
		_ = f.Close()
	}
}
