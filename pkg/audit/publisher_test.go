package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/oncorisk/pkg/common/models"
	"github.com/synaptica-ai/oncorisk/pkg/riskclient"
	"github.com/synaptica-ai/oncorisk/pkg/session"
)

type published struct {
	key       string
	eventType string
	source    string
	data      map[string]interface{}
}

type fakeEvents struct {
	calls []published
	err   error
}

func (f *fakeEvents) PublishEvent(ctx context.Context, key, eventType, source string, data map[string]interface{}) error {
	f.calls = append(f.calls, published{key, eventType, source, data})
	return f.err
}

func TestPublisherForwardsSelectedEvents(t *testing.T) {
	events := &fakeEvents{}
	p := NewPublisher(events, "riskform-ui")
	verdict := riskclient.NewVerdict(true)

	p.Observe(context.Background(), session.Event{
		Type:      session.EventPredicted,
		SessionID: "s1",
		Op:        "predict",
		Revision:  3,
		Fields:    map[string]string{"Tumor Size": "22"},
		Verdict:   &verdict,
	})
	p.Observe(context.Background(), session.Event{Type: session.EventInvalidated, SessionID: "s1"})

	require.Len(t, events.calls, 1)
	call := events.calls[0]
	assert.Equal(t, "s1", call.key)
	assert.Equal(t, "assessment.predicted", call.eventType)
	assert.Equal(t, "riskform-ui", call.source)
	assert.Equal(t, "High Risk", call.data["verdict"])
	assert.Equal(t, true, call.data["high_risk"])
	assert.Equal(t, uint64(3), call.data["revision"])
}

func TestPublisherSwallowsErrors(t *testing.T) {
	events := &fakeEvents{err: errors.New("broker down")}
	p := NewPublisher(events, "riskform-ui")

	assert.NotPanics(t, func() {
		p.Observe(context.Background(), session.Event{Type: session.EventFailed, SessionID: "s1", Err: session.ErrRequestFailed})
	})
	require.Len(t, events.calls, 1)
	assert.Equal(t, session.ErrRequestFailed.Error(), events.calls[0].data["error"])
}

func TestPublisherCustomTypes(t *testing.T) {
	events := &fakeEvents{}
	p := NewPublisher(events, "riskctl", session.EventStale)

	p.Observe(context.Background(), session.Event{Type: session.EventPredicted})
	p.Observe(context.Background(), session.Event{Type: session.EventStale})

	require.Len(t, events.calls, 1)
	assert.Equal(t, "assessment.stale_discarded", events.calls[0].eventType)
}

func TestFormatConsumedEvent(t *testing.T) {
	verdict := riskclient.NewVerdict(false)
	data := EventData(session.Event{
		Type:        session.EventExplained,
		SessionID:   "s1",
		Verdict:     &verdict,
		Explanation: riskclient.Explanation{"Tumor Size": 0.1, "PR Status": -0.2},
		Suggestion:  "routine screening",
	})

	// Round trip through JSON the way the consumer sees it.
	raw, err := json.Marshal(models.Event{
		Type:      "assessment.explained",
		Data:      data,
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	var event models.Event
	require.NoError(t, json.Unmarshal(raw, &event))

	line := Format(event)
	assert.Contains(t, line, "2024-03-01T12:00:00Z assessment.explained")
	assert.Contains(t, line, "session=s1")
	assert.Contains(t, line, `verdict="Low Risk"`)
	assert.Contains(t, line, "contributions=2")
	assert.Contains(t, line, `suggestion="routine screening"`)
}
