package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-reporter/metrics"
	"github.com/ethereum-optimism/infra/op-reporter/reporting"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Replay outcomes, as recorded in metrics.
const (
	OutcomePassed = "passed"
	OutcomeFailed = "failed"
	OutcomeError  = "error"
)

// ReplayResult summarizes a replayed run.
type ReplayResult struct {
	RunID    string
	Events   int
	Steps    reporting.StatusCounts
	// Duration is the sum of the step durations in the results.
	Duration time.Duration
	// Closed is set when the stream ended with a close event rather than EOF.
	Closed bool
}

// HasFailures reports whether any step failed or was undefined.
func (r *ReplayResult) HasFailures() bool {
	return r.Steps.Failed > 0 || r.Steps.Undefined > 0
}

// Outcome is OutcomeFailed when the run has failures, OutcomePassed otherwise.
func (r *ReplayResult) Outcome() string {
	if r.HasFailures() {
		return OutcomeFailed
	}
	return OutcomePassed
}

// Replayer feeds a recorded event stream to report formatters.
type Replayer interface {
	Replay(ctx context.Context, in io.Reader) (*ReplayResult, error)
}

// Config holds configuration for creating a new replayer
type Config struct {
	Log        log.Logger
	Formatters []reporting.Formatter
	// RunID identifies the run; a random one is generated when empty.
	RunID string
}

type replayer struct {
	log        log.Logger
	formatters []reporting.Formatter
	runID      string
	tracer     trace.Tracer
}

// NewReplayer creates a replayer delivering every event to all formatters, in order.
func NewReplayer(cfg Config) (Replayer, error) {
	if len(cfg.Formatters) == 0 {
		return nil, fmt.Errorf("at least one formatter is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	return &replayer{
		log:        cfg.Log,
		formatters: cfg.Formatters,
		runID:      cfg.RunID,
		tracer:     otel.Tracer("replayer"),
	}, nil
}

// Replay reads events until a close event, EOF, an error or cancellation of ctx, then
// closes every formatter exactly once. The result is returned even when err is set.
func (r *replayer) Replay(ctx context.Context, in io.Reader) (*ReplayResult, error) {
	runID := r.runID
	if runID == "" {
		runID = uuid.New().String()
	}
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("replay %s", runID))
	defer span.End()

	result := &ReplayResult{RunID: runID}
	r.log.Debug("Replaying run", "run_id", runID, "formatters", len(r.formatters))

	replayErr := r.replayEvents(ctx, types.NewDecoder(in), result)
	if replayErr != nil {
		r.log.Error("Replay stopped", "run_id", runID, "events", result.Events, "err", replayErr)
	}
	if err := r.closeFormatters(); err != nil {
		replayErr = errors.Join(replayErr, err)
	}

	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.Int("events", result.Events),
		attribute.Int("steps", result.Steps.Total()),
	)
	outcome := result.Outcome()
	if replayErr != nil {
		outcome = OutcomeError
		span.SetStatus(codes.Error, replayErr.Error())
		metrics.RecordErrorDetails("replay", replayErr)
	}
	metrics.RecordReplay(runID, outcome, result.Duration)

	r.log.Info("Replay finished", "run_id", runID, "outcome", outcome,
		"events", result.Events, "steps", result.Steps.String(), "duration", result.Duration)
	return result, replayErr
}

func (r *replayer) replayEvents(ctx context.Context, dec *types.Decoder, result *ReplayResult) error {
	var featureSpan trace.Span
	endFeature := func() {
		if featureSpan != nil {
			featureSpan.End()
			featureSpan = nil
		}
	}
	defer endFeature()

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("replay cancelled after %d events: %w", result.Events, err)
		}
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			r.log.Debug("Event stream ended without close event", "events", result.Events)
			return nil
		}
		if err != nil {
			return err
		}
		result.Events++
		metrics.RecordEvent(ev.Type)

		if ev.Type == types.EventClose {
			result.Closed = true
			return nil
		}
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("event %d: %w", result.Events, err)
		}
		if ev.Type == types.EventFeature {
			endFeature()
			_, featureSpan = r.tracer.Start(ctx, fmt.Sprintf("feature %s", ev.Feature.Name))
		}
		if err := r.dispatch(ev); err != nil {
			if featureSpan != nil {
				featureSpan.SetStatus(codes.Error, err.Error())
			}
			return fmt.Errorf("event %d (%s): %w", result.Events, ev.Type, err)
		}

		switch ev.Type {
		case types.EventResult:
			result.Steps.Add(ev.Step.Status)
			result.Duration += ev.Step.Duration
			metrics.RecordStepResult(result.RunID, ev.Step.Status)
		case types.EventEmbedding:
			metrics.RecordEmbedding(ev.Embedding.MimeType)
		}
	}
}

// dispatch delivers ev to every formatter, even after one of them failed.
func (r *replayer) dispatch(ev *types.Event) error {
	var errs []error
	for _, f := range r.formatters {
		if err := reporting.Dispatch(f, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *replayer) closeFormatters() error {
	var errs []error
	for i, f := range r.formatters {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("formatter %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
