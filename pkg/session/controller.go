// Package session implements the assessment flow for one user: form edits,
// prediction and explanation requests, and the rules that keep displayed
// results consistent with the form.
//
// A verdict is only ever shown for the form it was computed from. Editing a
// field after a prediction clears the verdict, explanation and suggestion,
// and explain is refused until a new prediction succeeds. Requests run
// asynchronously; a response that settles after its form revision or verdict
// was superseded is discarded. Among responses for the current form, the
// last one to settle wins.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/oncorisk/pkg/common/logger"
	"github.com/synaptica-ai/oncorisk/pkg/form"
	"github.com/synaptica-ai/oncorisk/pkg/observability/metrics"
	"github.com/synaptica-ai/oncorisk/pkg/riskclient"
)

// Predictor is the prediction contract of the risk model.
type Predictor interface {
	Predict(ctx context.Context, snapshot form.Snapshot) (riskclient.Verdict, error)
}

// Explainer is the explanation contract of the risk model.
type Explainer interface {
	Explain(ctx context.Context, snapshot form.Snapshot, verdict *riskclient.Verdict) (riskclient.ExplainResult, error)
}

type Options struct {
	Catalog     *form.Catalog
	AutoExplain bool
	Observers   []Observer
	// RequestTimeout bounds each call; zero leaves the bound to the network stack.
	RequestTimeout time.Duration
}

type Option func(*Options)

func WithCatalog(c *form.Catalog) Option {
	return func(o *Options) { o.Catalog = c }
}

// WithAutoExplain makes every applied prediction trigger an explanation.
func WithAutoExplain(enabled bool) Option {
	return func(o *Options) { o.AutoExplain = enabled }
}

func WithObserver(obs Observer) Option {
	return func(o *Options) { o.Observers = append(o.Observers, obs) }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) { o.RequestTimeout = d }
}

// Controller owns the state of one session. All methods are safe for
// concurrent use; network calls run outside the lock.
type Controller struct {
	id        string
	predictor Predictor
	explainer Explainer
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	form           *form.State
	verdict        *riskclient.Verdict
	generation     uint64
	explanation    riskclient.Explanation
	suggestion     string
	hasExplanation bool
	lastErr        error
	pending        int
	closed         bool
	updatedAt      time.Time
}

func New(id string, predictor Predictor, explainer Explainer, opts ...Option) *Controller {
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Catalog == nil {
		o.Catalog = form.DefaultCatalog()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		id:        id,
		predictor: predictor,
		explainer: explainer,
		opts:      o,
		ctx:       ctx,
		cancel:    cancel,
		form:      form.NewState(o.Catalog),
		updatedAt: time.Now().UTC(),
	}
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) Catalog() *form.Catalog {
	return c.opts.Catalog
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	switch {
	case c.verdict == nil:
		return Idle
	case c.hasExplanation:
		return Explained
	default:
		return Predicted
	}
}

// EditField updates one form value. An effective change while results are
// displayed clears them, returning the session to Idle.
func (c *Controller) EditField(name form.FieldName, raw string) error {
	c.mu.Lock()
	changed, err := c.form.SetField(name, raw)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if !changed {
		c.mu.Unlock()
		return nil
	}

	c.updatedAt = time.Now().UTC()
	invalidated := c.verdict != nil || c.hasExplanation
	if invalidated {
		c.clearResultsLocked()
	}
	revision := c.form.Revision()
	c.mu.Unlock()

	if invalidated {
		c.log().WithFields(logrus.Fields{"field": name, "revision": revision}).Info("Form edited, cleared stale results")
		c.notify(Event{Type: EventInvalidated, Op: "edit", Revision: revision})
	}
	return nil
}

func (c *Controller) clearResultsLocked() {
	c.verdict = nil
	c.explanation = nil
	c.suggestion = ""
	c.hasExplanation = false
	c.generation++
}

// RequestPredict sends the current form to the predictor. It returns at
// once; the returned Request settles when the response has been applied,
// discarded or reported as a failure.
func (c *Controller) RequestPredict() *Request {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return settled("predict", ErrClosed)
	}
	snap := c.form.Snapshot()
	c.pending++
	c.wg.Add(1)
	c.mu.Unlock()

	req := newRequest("predict")
	go func() {
		defer c.wg.Done()
		ctx, cancel := c.callContext()
		verdict, err := c.predictor.Predict(ctx, snap)
		cancel()

		err = c.settlePredict(snap, verdict, err)
		if err == nil && c.opts.AutoExplain {
			// The chained explanation reports its own failures.
			<-c.RequestExplain().Done()
		}
		req.finish(err)
	}()
	return req
}

func (c *Controller) settlePredict(snap form.Snapshot, verdict riskclient.Verdict, err error) error {
	c.mu.Lock()
	c.pending--
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.fail("predict", snap, err)
		return err
	}
	if snap.Revision != c.form.Revision() {
		c.mu.Unlock()
		c.discard("predict", snap)
		return ErrStaleResult
	}

	// A new verdict makes any earlier explanation stale.
	c.clearResultsLocked()
	v := verdict
	c.verdict = &v
	c.lastErr = nil
	c.updatedAt = time.Now().UTC()
	c.mu.Unlock()

	c.log().WithFields(logrus.Fields{"revision": snap.Revision, "verdict": v.Label()}).Info("Prediction applied")
	c.notify(Event{Type: EventPredicted, Op: "predict", Revision: snap.Revision, Fields: snap.Values(), Verdict: &v})
	return nil
}

// RequestExplain asks for an explanation of the current verdict. Without a
// verdict it settles immediately with ErrInvalidState and sends nothing.
func (c *Controller) RequestExplain() *Request {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return settled("explain", ErrClosed)
	}
	if c.verdict == nil {
		c.mu.Unlock()
		c.log().Warn("Explanation requested without a current prediction")
		c.notify(Event{Type: EventInvalidState, Op: "explain", Err: ErrInvalidState})
		return settled("explain", ErrInvalidState)
	}
	snap := c.form.Snapshot()
	verdict := *c.verdict
	generation := c.generation
	c.pending++
	c.wg.Add(1)
	c.mu.Unlock()

	req := newRequest("explain")
	go func() {
		defer c.wg.Done()
		ctx, cancel := c.callContext()
		result, err := c.explainer.Explain(ctx, snap, &verdict)
		cancel()
		req.finish(c.settleExplain(snap, verdict, generation, result, err))
	}()
	return req
}

func (c *Controller) settleExplain(snap form.Snapshot, verdict riskclient.Verdict, generation uint64, result riskclient.ExplainResult, err error) error {
	c.mu.Lock()
	c.pending--
	if err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.fail("explain", snap, err)
		return err
	}
	if generation != c.generation || snap.Revision != c.form.Revision() {
		c.mu.Unlock()
		c.discard("explain", snap)
		return ErrStaleResult
	}

	c.explanation = result.Explanation.Clone()
	c.suggestion = result.Suggestion
	c.hasExplanation = true
	c.lastErr = nil
	c.updatedAt = time.Now().UTC()
	c.mu.Unlock()

	c.log().WithFields(logrus.Fields{"revision": snap.Revision, "contributions": len(result.Explanation)}).Info("Explanation applied")
	c.notify(Event{
		Type:        EventExplained,
		Op:          "explain",
		Revision:    snap.Revision,
		Fields:      snap.Values(),
		Verdict:     &verdict,
		Explanation: result.Explanation.Clone(),
		Suggestion:  result.Suggestion,
	})
	return nil
}

// Predict runs RequestPredict and waits for it to settle.
func (c *Controller) Predict(ctx context.Context) error {
	return c.RequestPredict().Wait(ctx)
}

// Explain runs RequestExplain and waits for it to settle.
func (c *Controller) Explain(ctx context.Context) error {
	return c.RequestExplain().Wait(ctx)
}

// Close cancels outstanding requests and waits for them to settle.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) callContext() (context.Context, context.CancelFunc) {
	if c.opts.RequestTimeout > 0 {
		return context.WithTimeout(c.ctx, c.opts.RequestTimeout)
	}
	return context.WithCancel(c.ctx)
}

func (c *Controller) fail(op string, snap form.Snapshot, err error) {
	c.log().WithError(err).WithFields(logrus.Fields{"op": op, "revision": snap.Revision}).Error("Risk model request failed")
	c.notify(Event{Type: EventFailed, Op: op, Revision: snap.Revision, Err: err})
}

func (c *Controller) discard(op string, snap form.Snapshot) {
	c.log().WithFields(logrus.Fields{"op": op, "revision": snap.Revision}).Info("Discarded stale response")
	c.notify(Event{Type: EventStale, Op: op, Revision: snap.Revision, Err: ErrStaleResult})
}

func (c *Controller) notify(event Event) {
	event.SessionID = c.id
	event.At = time.Now().UTC()
	metrics.RecordAssessmentEvent(string(event.Type))
	ctx := context.WithoutCancel(c.ctx)
	for _, obs := range c.opts.Observers {
		obs.Observe(ctx, event)
	}
}

func (c *Controller) log() *logrus.Entry {
	return logger.WithField("session_id", c.id)
}
