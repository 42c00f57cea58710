// Package audit publishes session events to Kafka and renders them for the
// audit tail.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
	"github.com/synaptica-ai/oncorisk/pkg/common/models"
	"github.com/synaptica-ai/oncorisk/pkg/session"
)

const publishTimeout = 5 * time.Second

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, key, eventType, source string, data map[string]interface{}) error
}

// Publisher forwards session events to the events topic. Publishing is best
// effort; failures are logged and never reach the session.
type Publisher struct {
	events EventPublisher
	source string
	types  map[session.EventType]bool
}

// NewPublisher publishes the predicted, explained, failed and invalid-state
// events. Pass types to publish a different set.
func NewPublisher(events EventPublisher, source string, types ...session.EventType) *Publisher {
	if len(types) == 0 {
		types = []session.EventType{
			session.EventPredicted,
			session.EventExplained,
			session.EventFailed,
			session.EventInvalidState,
		}
	}
	set := make(map[session.EventType]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return &Publisher{events: events, source: source, types: set}
}

func (p *Publisher) Observe(ctx context.Context, event session.Event) {
	if !p.types[event.Type] {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.events.PublishEvent(ctx, event.SessionID, string(event.Type), p.source, EventData(event)); err != nil {
		logger.WithField("session_id", event.SessionID).WithError(err).Warn("Audit event dropped")
	}
}

// EventData is the payload of a published session event.
func EventData(event session.Event) map[string]interface{} {
	data := map[string]interface{}{
		"session_id": event.SessionID,
		"op":         event.Op,
		"revision":   event.Revision,
		"at":         event.At,
	}
	if event.Fields != nil {
		data["fields"] = event.Fields
	}
	if event.Verdict != nil {
		data["high_risk"] = event.Verdict.HighRisk
		data["verdict"] = event.Verdict.Label()
	}
	if event.Explanation != nil {
		data["explanation"] = map[string]float64(event.Explanation)
	}
	if event.Suggestion != "" {
		data["suggestion"] = event.Suggestion
	}
	if event.Err != nil {
		data["error"] = event.Err.Error()
	}
	return data
}

// Format renders a consumed event as one line for the audit tail.
func Format(event models.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-26s", event.Timestamp.UTC().Format(time.RFC3339), event.Type)
	if id, ok := event.Data["session_id"].(string); ok {
		fmt.Fprintf(&b, " session=%s", id)
	}
	if verdict, ok := event.Data["verdict"].(string); ok {
		fmt.Fprintf(&b, " verdict=%q", verdict)
	}
	if explanation, ok := event.Data["explanation"].(map[string]interface{}); ok {
		fmt.Fprintf(&b, " contributions=%d", len(explanation))
	}
	if suggestion, ok := event.Data["suggestion"].(string); ok {
		fmt.Fprintf(&b, " suggestion=%q", suggestion)
	}
	if msg, ok := event.Data["error"].(string); ok {
		fmt.Fprintf(&b, " error=%q", msg)
	}
	return b.String()
}
