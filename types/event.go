package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// EventType identifies the kind of a lifecycle event.
type EventType string

const (
	EventFeature         EventType = "feature"
	EventBackground      EventType = "background"
	EventScenario        EventType = "scenario"
	EventScenarioOutline EventType = "scenario_outline"
	EventMatch           EventType = "match"
	EventStep            EventType = "step"
	EventResult          EventType = "result"
	EventEmbedding       EventType = "embedding"
	EventClose           EventType = "close"
)

// ErrMalformedEvent is returned for events whose payload does not match their type.
var ErrMalformedEvent = errors.New("malformed event")

// Event is a single lifecycle event emitted by a test executor. Exactly one payload
// field, the one matching Type, is set.
type Event struct {
	Type       EventType   `json:"type"`
	Feature    *Feature    `json:"feature,omitempty"`
	Background *Background `json:"background,omitempty"`
	Scenario   *Scenario   `json:"scenario,omitempty"`
	Match      *Match      `json:"match,omitempty"`
	Step       *Step       `json:"step,omitempty"`
	Embedding  *Embedding  `json:"embedding,omitempty"`
}

// Validate checks that the payload required by the event type is present.
func (e *Event) Validate() error {
	var missing bool
	switch e.Type {
	case EventFeature:
		missing = e.Feature == nil
	case EventBackground:
		missing = e.Background == nil
	case EventScenario, EventScenarioOutline:
		missing = e.Scenario == nil
	case EventMatch:
		missing = e.Match == nil
	case EventStep, EventResult:
		missing = e.Step == nil
	case EventEmbedding:
		missing = e.Embedding == nil
	case EventClose:
	default:
		return fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, e.Type)
	}
	if missing {
		return fmt.Errorf("%w: %s event without payload", ErrMalformedEvent, e.Type)
	}
	return nil
}

// Decoder reads a stream of JSON encoded events, typically one per line.
type Decoder struct {
	dec   *json.Decoder
	count int
}

// NewDecoder returns a decoder reading events from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: json.NewDecoder(r)}
}

// Next returns the next event, or io.EOF once the stream is exhausted.
func (d *Decoder) Next() (*Event, error) {
	var ev Event
	if err := d.dec.Decode(&ev); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: event %d: %w", ErrMalformedEvent, d.count+1, err)
	}
	d.count++
	if err := ev.Validate(); err != nil {
		return nil, fmt.Errorf("event %d: %w", d.count, err)
	}
	return &ev, nil
}

// Count returns the number of events decoded so far.
func (d *Decoder) Count() int {
	return d.count
}
