package transport

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"
)

// Outcome is the result delivered to a parked call.
type Outcome struct {
	Response *http.Response
	Err      error
}

// Pending is a call parked while a refresh is outstanding. It is resolved
// exactly once, either with the replay outcome or with the refresh failure.
type Pending struct {
	ID       string
	Request  *http.Request
	done     chan Outcome
	resolved atomic.Bool
}

func newPending(req *http.Request) *Pending {
	return &Pending{
		ID:      uuid.NewString(),
		Request: req,
		done:    make(chan Outcome, 1),
	}
}

// Resolved reports whether an outcome was delivered.
func (p *Pending) Resolved() bool {
	return p.resolved.Load()
}

// resolve delivers the outcome; it returns false if p was already resolved.
func (p *Pending) resolve(resp *http.Response, err error) bool {
	if !p.resolved.CompareAndSwap(false, true) {
		return false
	}
	p.done <- Outcome{Response: resp, Err: err}
	return true
}

// Wait blocks until p is resolved or ctx is done. When the caller gives up
// the outcome is still consumed later and any response body closed.
func (p *Pending) Wait(ctx context.Context) (*http.Response, error) {
	select {
	case outcome := <-p.done:
		return outcome.Response, outcome.Err
	case <-ctx.Done():
		go p.abandon()
		return nil, ctx.Err()
	}
}

func (p *Pending) abandon() {
	outcome := <-p.done
	discard(outcome.Response)
}
