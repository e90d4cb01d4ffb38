package types

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses {
		parsed, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
		assert.True(t, s.Valid())
	}

	_, err := ParseStatus("bogus")
	require.ErrorIs(t, err, ErrUnknownStatus)
	assert.False(t, Status("").Valid())
}

func TestLocationString(t *testing.T) {
	assert.Equal(t, "features/login.feature:12", Location{Filename: "features/login.feature", Line: 12}.String())
}

func TestDecoder(t *testing.T) {
	stream := `{"type":"feature","feature":{"keyword":"Feature","name":"F1","tags":["smoke"]}}
{"type":"scenario","scenario":{"keyword":"Scenario","name":"S1","location":{"filename":"f.feature","line":3}}}
{"type":"step","step":{"keyword":"Given","name":"x","status":"untested"}}
{"type":"match","match":{"arguments":[{"value":"x","start":0,"end":1}],"location":{"filename":"steps.go","line":9}}}
{"type":"result","step":{"keyword":"Given","name":"x","status":"passed","duration":1500000000}}
{"type":"embedding","embedding":{"mime_type":"text/plain","data":"aGVsbG8=","caption":"log"}}
{"type":"close"}
`
	dec := NewDecoder(strings.NewReader(stream))

	var events []*Event
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		events = append(events, ev)
	}

	require.Len(t, events, 7)
	assert.Equal(t, 7, dec.Count())
	assert.Equal(t, EventFeature, events[0].Type)
	assert.Equal(t, []string{"smoke"}, events[0].Feature.Tags)
	assert.Equal(t, 3, events[1].Scenario.Location.Line)
	assert.Equal(t, StatusUntested, events[2].Step.Status)
	require.NotNil(t, events[3].Match.Location)
	assert.Equal(t, "steps.go:9", events[3].Match.Location.String())
	assert.Equal(t, 1500*time.Millisecond, events[4].Step.Duration)
	assert.Equal(t, []byte("hello"), events[5].Embedding.Data)
	assert.Equal(t, EventClose, events[6].Type)
}

func TestDecoderKeepsUnknownStatus(t *testing.T) {
	// Status validation belongs to the renderers, the decoder passes values through.
	dec := NewDecoder(strings.NewReader(`{"type":"result","step":{"keyword":"Given","name":"x","status":"bogus"}}`))
	ev, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, Status("bogus"), ev.Step.Status)
}

func TestDecoderErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "missing payload", input: `{"type":"feature"}`},
		{name: "unknown type", input: `{"type":"teardown"}`},
		{name: "broken json", input: `{"type":"feature",`},
		{name: "result without step", input: `{"type":"result","feature":{"name":"F"}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDecoder(strings.NewReader(tc.input)).Next()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}

func TestDecoderEmptyStream(t *testing.T) {
	_, err := NewDecoder(strings.NewReader("")).Next()
	assert.ErrorIs(t, err, io.EOF)
}
