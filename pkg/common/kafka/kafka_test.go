package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/oncorisk/pkg/common/models"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type queueReader struct {
	messages  []kafka.Message
	committed []kafka.Message
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}
	if len(r.messages) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.messages[0]
	r.messages = r.messages[1:]
	return m, nil
}

func (r *queueReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *queueReader) Close() error { return nil }

func TestPublishEvent(t *testing.T) {
	w := &recordingWriter{}
	p := &Producer{writer: w, topic: "oncorisk.assessments"}

	err := p.PublishEvent(context.Background(), "session-1", "assessment.predicted", "riskform-ui", map[string]interface{}{
		"verdict": "High Risk",
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "session-1", string(msg.Key))
	assert.Contains(t, msg.Headers, kafka.Header{Key: "event-type", Value: []byte("assessment.predicted")})

	var event models.Event
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "assessment.predicted", event.Type)
	assert.Equal(t, "riskform-ui", event.Source)
	assert.Equal(t, "High Risk", event.Data["verdict"])
}

func TestPublishEventWriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := &Producer{writer: w, topic: "t"}

	err := p.PublishEvent(context.Background(), "", "assessment.failed", "riskform-ui", nil)
	assert.EqualError(t, err, "broker down")
}

func TestConsumeCommitsHandledEvents(t *testing.T) {
	encode := func(e models.Event) kafka.Message {
		data, err := json.Marshal(e)
		require.NoError(t, err)
		return kafka.Message{Value: data}
	}

	r := &queueReader{messages: []kafka.Message{
		encode(models.Event{ID: "1", Type: "assessment.predicted"}),
		{Value: []byte("not json")},
		encode(models.Event{ID: "2", Type: "assessment.failed"}),
	}}
	c := &Consumer{reader: r}

	var seen []string
	err := c.Consume(context.Background(), func(ctx context.Context, event models.Event) error {
		seen = append(seen, event.ID)
		if event.ID == "2" {
			return errors.New("handler failed")
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, seen)
	// The malformed message is skipped and committed; the failed one is not.
	assert.Len(t, r.committed, 2)
}

func TestConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Consumer{reader: &queueReader{}}
	err := c.Consume(ctx, func(ctx context.Context, event models.Event) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

type failingReader struct {
	fetches int32
	fetched chan struct{}
}

func (r *failingReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if atomic.AddInt32(&r.fetches, 1) == 1 {
		close(r.fetched)
	}
	return kafka.Message{}, errors.New("leader not available")
}

func (r *failingReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return nil
}

func (r *failingReader) Close() error { return nil }

func TestConsumeWaitsBeforeRetryingFetch(t *testing.T) {
	reader := &failingReader{fetched: make(chan struct{})}
	c := &Consumer{reader: reader, retryDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, func(ctx context.Context, event models.Event) error { return nil })
	}()

	<-reader.fetched
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("consume did not stop while waiting to retry")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&reader.fetches))
}

func TestNewConsumerSetsRetryDelay(t *testing.T) {
	c := NewConsumer([]string{"localhost:9092"}, "oncorisk.assessments", "oncorisk-audit")
	defer c.Close()
	assert.Equal(t, fetchRetryDelay, c.retryDelay)
}
