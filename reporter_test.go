package reporter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/flags"
	"github.com/ethereum-optimism/infra/op-reporter/metrics"
	"github.com/ethereum-optimism/infra/op-reporter/runner"
)

func fixture(name string) string {
	return filepath.Join("testdata", "events", name)
}

func newTestConfig(t *testing.T, events string, formats ...flags.Format) *Config {
	t.Helper()
	return &Config{
		EventsPath: events,
		Formats:    formats,
		HTMLOut:    filepath.Join(t.TempDir(), "report.html"),
		ColorMode:  flags.ColorNever,
		RunID:      "run-test",
		Log:        log.NewLogger(log.DiscardHandler()),
	}
}

type recordingResultFormatter struct {
	results []*runner.ReplayResult
}

func (r *recordingResultFormatter) FormatResults(result *runner.ReplayResult) error {
	r.results = append(r.results, result)
	return nil
}

type failingMetricsReporter struct{}

func (failingMetricsReporter) ReportResults(*runner.ReplayResult) error {
	return errors.New("textfile unwritable")
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNewRejectsBadColors(t *testing.T) {
	cfg := newTestConfig(t, fixture("passing.jsonl"), flags.FormatPretty)
	cfg.Colors = "passed=ultraviolet"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestRunPassingHTML(t *testing.T) {
	cfg := newTestConfig(t, fixture("passing.jsonl"), flags.FormatHTML)
	cfg.Title = "Deposits"
	summary := &recordingResultFormatter{}
	r, err := New(cfg, WithResultFormatter(summary))
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-test", result.RunID)
	assert.Equal(t, 2, result.Steps.Passed)
	assert.True(t, result.Closed)
	require.Len(t, summary.results, 1, "summary is printed when stdout is free")

	report, err := os.ReadFile(cfg.HTMLOut)
	require.NoError(t, err)
	assert.Contains(t, string(report), "<title>Deposits</title>")
	assert.Contains(t, string(report), "run-test")
	assert.Contains(t, string(report), "steps/deposit.go:20")
}

func TestRunFailing(t *testing.T) {
	cfg := newTestConfig(t, fixture("failing.jsonl"), flags.FormatHTML)
	r, err := New(cfg, WithResultFormatter(&recordingResultFormatter{}))
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.False(t, IsRuntimeError(err))
	assert.Contains(t, err.Error(), "run run-test has 1 failed and 0 undefined steps")
	assert.Equal(t, 1, result.Steps.Failed)
	assert.FileExists(t, cfg.HTMLOut)
}

func TestRunRuntimeErrors(t *testing.T) {
	tests := []struct {
		name   string
		events string
		mutate func(t *testing.T, cfg *Config)
	}{
		{name: "missing events", events: fixture("missing.jsonl")},
		{name: "malformed events", events: fixture("malformed.jsonl")},
		{
			name:   "missing template",
			events: fixture("passing.jsonl"),
			mutate: func(t *testing.T, cfg *Config) {
				cfg.HTMLTemplate = filepath.Join(t.TempDir(), "missing.tmpl")
			},
		},
		{
			name:   "unwritable report",
			events: fixture("passing.jsonl"),
			mutate: func(t *testing.T, cfg *Config) {
				blocker := filepath.Join(t.TempDir(), "file")
				require.NoError(t, os.WriteFile(blocker, nil, 0644))
				cfg.HTMLOut = filepath.Join(blocker, "report.html")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t, tt.events, flags.FormatHTML)
			if tt.mutate != nil {
				tt.mutate(t, cfg)
			}
			r, err := New(cfg, WithResultFormatter(&recordingResultFormatter{}))
			require.NoError(t, err)

			_, err = r.Run(context.Background())
			require.Error(t, err)
			assert.True(t, IsRuntimeError(err))
		})
	}
}

func TestRunMetricsFailureIsRuntimeError(t *testing.T) {
	cfg := newTestConfig(t, fixture("passing.jsonl"), flags.FormatHTML)
	r, err := New(cfg, WithMetricsReporter(failingMetricsReporter{}), WithResultFormatter(&recordingResultFormatter{}))
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
	assert.Contains(t, err.Error(), "textfile unwritable")
}

func TestRunStdStreams(t *testing.T) {
	events, err := os.ReadFile(fixture("passing.jsonl"))
	require.NoError(t, err)

	cfg := newTestConfig(t, StdStream, flags.FormatPretty, flags.FormatHTML)
	cfg.HTMLOut = StdStream
	summary := &recordingResultFormatter{}
	var stdout bytes.Buffer
	r, err := New(cfg, WithStreams(bytes.NewReader(events), &stdout), WithResultFormatter(summary))
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "Feature: Deposits")
	assert.Contains(t, out, "<!DOCTYPE HTML")
	assert.Less(t, strings.Index(out, "Feature: Deposits"), strings.Index(out, "<!DOCTYPE HTML"),
		"the transcript is written while replaying, the HTML document on close")
	assert.NotContains(t, out, "\x1b[")
	assert.Empty(t, summary.results, "stdout already carries the reports")
}

func TestRunColorModes(t *testing.T) {
	tests := []struct {
		mode   flags.ColorMode
		colors bool
	}{
		{mode: flags.ColorAlways, colors: true},
		{mode: flags.ColorNever, colors: false},
		// a buffer is not a terminal
		{mode: flags.ColorAuto, colors: false},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			cfg := newTestConfig(t, fixture("passing.jsonl"), flags.FormatPretty)
			cfg.ColorMode = tt.mode
			var stdout bytes.Buffer
			r, err := New(cfg, WithStreams(strings.NewReader(""), &stdout))
			require.NoError(t, err)

			_, err = r.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.colors, strings.Contains(stdout.String(), "\x1b["))
		})
	}
}

func TestDefaultMetricsReporter(t *testing.T) {
	result := &runner.ReplayResult{RunID: "run-metrics"}
	metrics.RecordReplay(result.RunID, runner.OutcomePassed, time.Second)
	require.NoError(t, NewDefaultMetricsReporter("").ReportResults(result))

	path := filepath.Join(t.TempDir(), "reporter.prom")
	require.NoError(t, NewDefaultMetricsReporter(path).ReportResults(result))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "op_reporter_replay_result")
	assert.Contains(t, string(content), `run_id="run-metrics"`)
}

func TestRunArchivesEvents(t *testing.T) {
	events, err := os.ReadFile(fixture("passing.jsonl"))
	require.NoError(t, err)

	cfg := newTestConfig(t, StdStream, flags.FormatHTML)
	cfg.ArchiveDir = t.TempDir()
	r, err := New(cfg, WithStreams(bytes.NewReader(events), io.Discard), WithResultFormatter(&recordingResultFormatter{}))
	require.NoError(t, err)

	_, err = r.Run(context.Background())
	require.NoError(t, err)

	archived, err := os.ReadFile(filepath.Join(cfg.ArchiveDir, "testrun-run-test", "events.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, string(events), string(archived))
}
