package runner

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/reporting"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const passingRun = `{"type":"feature","feature":{"keyword":"Feature","name":"F1"}}
{"type":"scenario","scenario":{"keyword":"Scenario","name":"S1"}}
{"type":"step","step":{"keyword":"Given","name":"x","status":"untested"}}
{"type":"match","match":{"location":{"filename":"steps.go","line":3}}}
{"type":"result","step":{"keyword":"Given","name":"x","status":"passed","duration":300000000}}
{"type":"embedding","embedding":{"mime_type":"text/plain","data":"aGk="}}
{"type":"close"}
`

// countingFormatter counts calls and can be told to fail on a given event.
type countingFormatter struct {
	events  []string
	closes  int
	failOn  string
	failErr error
}

func (c *countingFormatter) seen(name string) error {
	c.events = append(c.events, name)
	if name == c.failOn {
		return c.failErr
	}
	return nil
}

func (c *countingFormatter) Feature(*types.Feature) error { return c.seen("feature") }
func (c *countingFormatter) Background(*types.Background) error { return c.seen("background") }
func (c *countingFormatter) Scenario(*types.Scenario) error { return c.seen("scenario") }
func (c *countingFormatter) ScenarioOutline(*types.Scenario) error { return c.seen("scenario_outline") }
func (c *countingFormatter) Match(*types.Match) error { return c.seen("match") }
func (c *countingFormatter) Step(*types.Step) error { return c.seen("step") }
func (c *countingFormatter) Result(*types.Step) error { return c.seen("result") }
func (c *countingFormatter) Embedding(string, []byte, string) error {
	return c.seen("embedding")
}
func (c *countingFormatter) Close() error {
	c.closes++
	return nil
}

func newTestReplayer(t *testing.T, runID string, formatters ...reporting.Formatter) Replayer {
	t.Helper()
	r, err := NewReplayer(Config{
		Log:        log.NewLogger(log.DiscardHandler()),
		Formatters: formatters,
		RunID:      runID,
	})
	require.NoError(t, err)
	return r
}

func TestNewReplayerRequiresFormatter(t *testing.T) {
	_, err := NewReplayer(Config{Log: log.NewLogger(log.DiscardHandler())})
	require.Error(t, err)
}

func TestReplayPassingRun(t *testing.T) {
	first, second := &countingFormatter{}, &countingFormatter{}
	r := newTestReplayer(t, "run-passing", first, second)

	result, err := r.Replay(context.Background(), strings.NewReader(passingRun))
	require.NoError(t, err)

	assert.Equal(t, "run-passing", result.RunID)
	assert.Equal(t, 7, result.Events)
	assert.True(t, result.Closed)
	assert.Equal(t, 1, result.Steps.Passed)
	assert.Equal(t, "300ms", result.Duration.String())
	assert.False(t, result.HasFailures())
	assert.Equal(t, OutcomePassed, result.Outcome())

	expected := []string{"feature", "scenario", "step", "match", "result", "embedding"}
	assert.Equal(t, expected, first.events)
	assert.Equal(t, expected, second.events)
	assert.Equal(t, 1, first.closes)
	assert.Equal(t, 1, second.closes)
}

func TestReplayGeneratesRunID(t *testing.T) {
	r := newTestReplayer(t, "", &countingFormatter{})
	result, err := r.Replay(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Len(t, result.RunID, 36)
	assert.False(t, result.Closed)
	assert.Zero(t, result.Events)
}

func TestReplayStopsAtClose(t *testing.T) {
	f := &countingFormatter{}
	r := newTestReplayer(t, "run-close", f)
	stream := passingRun + `{"type":"feature","feature":{"name":"late"}}` + "\n"

	result, err := r.Replay(context.Background(), strings.NewReader(stream))
	require.NoError(t, err)
	assert.Equal(t, 7, result.Events)
	assert.NotContains(t, f.events[1:], "feature")
	assert.Equal(t, 1, f.closes)
}

func TestReplayFailures(t *testing.T) {
	stream := `{"type":"feature","feature":{"name":"F1"}}
{"type":"scenario","scenario":{"name":"S1"}}
{"type":"result","step":{"name":"a","status":"failed"}}
{"type":"result","step":{"name":"b","status":"undefined"}}
`
	r := newTestReplayer(t, "run-failing", &countingFormatter{})
	result, err := r.Replay(context.Background(), strings.NewReader(stream))
	require.NoError(t, err)
	assert.True(t, result.HasFailures())
	assert.Equal(t, OutcomeFailed, result.Outcome())
	assert.Equal(t, 1, result.Steps.Failed)
	assert.Equal(t, 1, result.Steps.Undefined)
}

func TestReplayFormatterError(t *testing.T) {
	boom := errors.New("boom")
	failing := &countingFormatter{failOn: "scenario", failErr: boom}
	healthy := &countingFormatter{}
	r := newTestReplayer(t, "run-error", failing, healthy)

	result, err := r.Replay(context.Background(), strings.NewReader(passingRun))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "event 2 (scenario)")
	assert.Equal(t, 2, result.Events)

	// every formatter saw the failing event and was closed
	assert.Equal(t, []string{"feature", "scenario"}, healthy.events)
	assert.Equal(t, 1, failing.closes)
	assert.Equal(t, 1, healthy.closes)
}

func TestReplayMalformedStream(t *testing.T) {
	testCases := []struct {
		name   string
		stream string
	}{
		{name: "broken json", stream: `{"type":"feature",`},
		{name: "missing payload", stream: `{"type":"result"}`},
		{name: "unknown type", stream: `{"type":"teardown"}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &countingFormatter{}
			r := newTestReplayer(t, "run-malformed", f)
			_, err := r.Replay(context.Background(), strings.NewReader(tc.stream))
			require.ErrorIs(t, err, types.ErrMalformedEvent)
			assert.Empty(t, f.events)
			assert.Equal(t, 1, f.closes)
		})
	}
}

func TestReplayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &countingFormatter{}
	r := newTestReplayer(t, "run-cancelled", f)

	_, err := r.Replay(ctx, strings.NewReader(passingRun))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.events)
	assert.Equal(t, 1, f.closes)
}

func TestReplayIntoHTMLReport(t *testing.T) {
	var out bytes.Buffer
	html, err := reporting.NewHTMLFormatter(reporting.WriterOpener(&out),
		reporting.WithRunID("run-html"),
		reporting.WithLogger(log.NewLogger(log.DiscardHandler())))
	require.NoError(t, err)

	r := newTestReplayer(t, "run-html", html)
	_, err = r.Replay(context.Background(), strings.NewReader(passingRun))
	require.NoError(t, err)

	report := out.String()
	assert.Contains(t, report, `<li class="step passed">`)
	assert.Contains(t, report, "steps.go:3")
	assert.Contains(t, report, "Finished in 0.3 seconds")
	assert.Contains(t, report, "<pre id=\"embed_1\" style=\"display: none\">hi</pre>")
}

func TestReplayProtocolViolationSkipsReport(t *testing.T) {
	var out bytes.Buffer
	html, err := reporting.NewHTMLFormatter(reporting.WriterOpener(&out),
		reporting.WithLogger(log.NewLogger(log.DiscardHandler())))
	require.NoError(t, err)

	stream := `{"type":"feature","feature":{"name":"F1"}}
{"type":"scenario","scenario":{"name":"S1"}}
{"type":"result","step":{"name":"a","status":"bogus"}}
{"type":"close"}
`
	r := newTestReplayer(t, "run-bogus", html)
	_, err = r.Replay(context.Background(), strings.NewReader(stream))
	require.ErrorIs(t, err, reporting.ErrProtocolViolation)
	assert.Empty(t, out.String())
}
