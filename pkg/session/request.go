package session

import "context"

// Request is the handle of an asynchronous predict or explain call. It
// settles exactly once; Err is meaningful only after Done is closed.
type Request struct {
	op   string
	done chan struct{}
	err  error
}

func newRequest(op string) *Request {
	return &Request{op: op, done: make(chan struct{})}
}

func settled(op string, err error) *Request {
	r := newRequest(op)
	r.finish(err)
	return r
}

func (r *Request) finish(err error) {
	r.err = err
	close(r.done)
}

// Op is "predict" or "explain".
func (r *Request) Op() string {
	return r.op
}

func (r *Request) Done() <-chan struct{} {
	return r.done
}

func (r *Request) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the request settles or ctx ends. Giving up on the wait
// does not cancel the request.
func (r *Request) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
