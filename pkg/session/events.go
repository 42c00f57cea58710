package session

import (
	"context"
	"time"

	"github.com/synaptica-ai/oncorisk/pkg/riskclient"
)

type EventType string

const (
	EventPredicted    EventType = "assessment.predicted"
	EventExplained    EventType = "assessment.explained"
	EventFailed       EventType = "assessment.failed"
	EventInvalidState EventType = "assessment.invalid_state"
	EventStale        EventType = "assessment.stale_discarded"
	EventInvalidated  EventType = "assessment.invalidated"
)

// Event reports one transition or failure of a session.
type Event struct {
	Type        EventType
	SessionID   string
	Op          string
	Revision    uint64
	Fields      map[string]string
	Verdict     *riskclient.Verdict
	Explanation riskclient.Explanation
	Suggestion  string
	Err         error
	At          time.Time
}

// Observer receives session events after they have been applied. Observers
// run outside the session lock and must not call back into the session.
type Observer interface {
	Observe(ctx context.Context, event Event)
}

type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) Observe(ctx context.Context, event Event) {
	f(ctx, event)
}
