package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// ErrProtocolViolation is returned when the event stream breaks the formatter contract,
// eg. a result without a preceding step list or a status outside the known set.
var ErrProtocolViolation = errors.New("protocol violation")

// UnknownLocation is rendered for steps whose implementation location is unknown.
const UnknownLocation = "<unknown>"

// Formatter consumes the lifecycle events of one test run. Calls arrive in run
// order from a single goroutine:
//
//	feature -> [background] -> scenario* -> (match -> step -> result)* -> [embedding]* -> close
type Formatter interface {
	Feature(feature *types.Feature) error
	Background(background *types.Background) error
	Scenario(scenario *types.Scenario) error
	ScenarioOutline(outline *types.Scenario) error
	Match(match *types.Match) error
	Step(step *types.Step) error
	Result(result *types.Step) error
	Embedding(mimeType string, data []byte, caption string) error
	Close() error
}

// Dispatch delivers a single event to f.
func Dispatch(f Formatter, ev *types.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	switch ev.Type {
	case types.EventFeature:
		return f.Feature(ev.Feature)
	case types.EventBackground:
		return f.Background(ev.Background)
	case types.EventScenario:
		return f.Scenario(ev.Scenario)
	case types.EventScenarioOutline:
		return f.ScenarioOutline(ev.Scenario)
	case types.EventMatch:
		return f.Match(ev.Match)
	case types.EventStep:
		return f.Step(ev.Step)
	case types.EventResult:
		return f.Result(ev.Step)
	case types.EventEmbedding:
		return f.Embedding(ev.Embedding.MimeType, ev.Embedding.Data, ev.Embedding.Caption)
	case types.EventClose:
		return f.Close()
	}
	return fmt.Errorf("unhandled event type %q", ev.Type)
}

// StreamOpener opens the sink a formatter writes to.
type StreamOpener func() (io.WriteCloser, error)

// FileOpener returns an opener creating the file at path, including missing parent directories.
func FileOpener(path string) StreamOpener {
	return func() (io.WriteCloser, error) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory for %s: %w", path, err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
		}
		return f, nil
	}
}

// WriterOpener returns an opener for an already open writer. Closing the returned
// sink does not close w.
func WriterOpener(w io.Writer) StreamOpener {
	return func() (io.WriteCloser, error) {
		return nopCloser{w}, nil
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// checkStatus validates a result status reported by the executor.
func checkStatus(s types.Status) error {
	if _, err := types.ParseStatus(string(s)); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	}
	return nil
}
