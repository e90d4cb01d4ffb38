package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const (
	MetricsNamespace = "op_reporter"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "events_total",
		Help:      "Count of replayed run events",
	}, []string{
		"event",
	})

	stepResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "step_results_total",
		Help:      "Count of step results by status",
	}, []string{
		"run_id",
		"status",
	})

	embeddingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "embeddings_total",
		Help:      "Count of embedded attachments",
	}, []string{
		"mime_type",
	})

	replayResult = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "replay_result",
		Help:      "Outcome of a replayed run, 1 for the outcome that applies",
	}, []string{
		"run_id",
		"result",
	})

	replayDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "replay_duration_seconds",
		Help:      "Sum of the step durations of a replayed run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordEvent(event types.EventType) {
	eventsTotal.WithLabelValues(string(event)).Inc()
}

func RecordStepResult(runID string, status types.Status) {
	if !status.Valid() {
		log.Error("RecordStepResult - invalid status", "status", status)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "step_results_total",
			"run_id", runID,
			"status", status)
	}
	stepResultsTotal.WithLabelValues(runID, string(status)).Inc()
}

// RecordEmbedding counts an attachment by its media type, parameters dropped.
func RecordEmbedding(mimeType string) {
	mediaType, _, _ := strings.Cut(mimeType, ";")
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		mediaType = "unknown"
	}
	embeddingsTotal.WithLabelValues(mediaType).Inc()
}

func RecordReplay(runID string, result string, duration time.Duration) {
	replayResult.WithLabelValues(runID, result).Set(1)
	replayDuration.WithLabelValues(runID).Set(duration.Seconds())
}

// WriteTextfile dumps the default registry in the node exporter textfile format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
