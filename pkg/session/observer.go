package session

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
)

// DefaultObserverBuffer is the queue depth used when NewAsyncObserver gets a
// non-positive size.
const DefaultObserverBuffer = 256

type queuedEvent struct {
	ctx   context.Context
	event Event
}

// AsyncObserver hands events to a slow observer on a single background
// goroutine, so sinks such as Kafka or Postgres never delay a session.
// Events are delivered in the order they were observed. When the queue is
// full the event is dropped and logged.
type AsyncObserver struct {
	next   Observer
	name   string
	queue  chan queuedEvent
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func NewAsyncObserver(name string, next Observer, buffer int) *AsyncObserver {
	if buffer <= 0 {
		buffer = DefaultObserverBuffer
	}
	a := &AsyncObserver{
		next:  next,
		name:  name,
		queue: make(chan queuedEvent, buffer),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncObserver) Observe(ctx context.Context, event Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.queue <- queuedEvent{ctx: ctx, event: event}:
	default:
		logger.WithFields(logrus.Fields{
			"observer":   a.name,
			"session_id": event.SessionID,
			"event_type": event.Type,
		}).Warn("Observer queue full, dropping event")
	}
}

// Close stops accepting events and waits until queued events are delivered.
func (a *AsyncObserver) Close() error {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})
	<-a.done
	return nil
}

func (a *AsyncObserver) run() {
	defer close(a.done)
	for item := range a.queue {
		a.next.Observe(item.ctx, item.event)
	}
}
