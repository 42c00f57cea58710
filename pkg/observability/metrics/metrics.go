package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	predictionsApplied   atomic.Int64
	explanationsApplied  atomic.Int64
	requestsFailed       atomic.Int64
	invalidStateRefusals atomic.Int64
	staleDiscarded       atomic.Int64
	resultsInvalidated   atomic.Int64
	sessionsActive       atomic.Int64
)

// RecordAssessmentEvent counts one session event by its type name.
func RecordAssessmentEvent(eventType string) {
	switch eventType {
	case "assessment.predicted":
		predictionsApplied.Add(1)
	case "assessment.explained":
		explanationsApplied.Add(1)
	case "assessment.failed":
		requestsFailed.Add(1)
	case "assessment.invalid_state":
		invalidStateRefusals.Add(1)
	case "assessment.stale_discarded":
		staleDiscarded.Add(1)
	case "assessment.invalidated":
		resultsInvalidated.Add(1)
	}
}

func ObserveActiveSessions(n int) {
	sessionsActive.Store(int64(n))
}

// Counts is a point-in-time copy of the counters.
type Counts struct {
	PredictionsApplied   int64
	ExplanationsApplied  int64
	RequestsFailed       int64
	InvalidStateRefusals int64
	StaleDiscarded       int64
	ResultsInvalidated   int64
	SessionsActive       int64
}

func Snapshot() Counts {
	return Counts{
		PredictionsApplied:   predictionsApplied.Load(),
		ExplanationsApplied:  explanationsApplied.Load(),
		RequestsFailed:       requestsFailed.Load(),
		InvalidStateRefusals: invalidStateRefusals.Load(),
		StaleDiscarded:       staleDiscarded.Load(),
		ResultsInvalidated:   resultsInvalidated.Load(),
		SessionsActive:       sessionsActive.Load(),
	}
}

func WritePrometheus(w http.ResponseWriter) {
	c := Snapshot()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "oncorisk_predictions_applied_total", "counter", "Predictions applied to a session.", c.PredictionsApplied)
	writeMetric(w, "oncorisk_explanations_applied_total", "counter", "Explanations applied to a session.", c.ExplanationsApplied)
	writeMetric(w, "oncorisk_requests_failed_total", "counter", "Predict or explain calls that failed.", c.RequestsFailed)
	writeMetric(w, "oncorisk_invalid_state_total", "counter", "Explain requests refused for lack of a current prediction.", c.InvalidStateRefusals)
	writeMetric(w, "oncorisk_stale_discarded_total", "counter", "Responses discarded because the form or verdict had changed.", c.StaleDiscarded)
	writeMetric(w, "oncorisk_results_invalidated_total", "counter", "Edits that cleared displayed results.", c.ResultsInvalidated)
	writeMetric(w, "oncorisk_sessions_active", "gauge", "Sessions held in memory.", c.SessionsActive)
}

func writeMetric(w http.ResponseWriter, name, kind, help string, value int64) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %d\n", name, value)
}
