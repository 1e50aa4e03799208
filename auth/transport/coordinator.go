package transport

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/statsadmin/client/auth/store"
)

// Replayer re-dispatches a parked request with whatever credential the
// store holds at that time.
type Replayer func(req *http.Request) (*http.Response, error)

// Coordinator guarantees at most one refresh in flight per store. It has two
// states, idle and refreshing; the flag and the parked calls only change
// together under mux, and no I/O happens while mux is held.
type Coordinator struct {
	mux        sync.Mutex
	refreshing bool
	pending    []*Pending

	store     store.Store
	refresher Refresher
	replay    Replayer
	timeout   time.Duration
	logger    logrus.FieldLogger
	onExpired func(error)
	refreshes atomic.Int64
}

// NewCoordinator creates a coordinator refreshing into aStore.
func NewCoordinator(aStore store.Store, refresher Refresher, replay Replayer, timeout time.Duration, logger logrus.FieldLogger) *Coordinator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Coordinator{
		store:     aStore,
		refresher: refresher,
		replay:    replay,
		timeout:   timeout,
		logger:    logger,
	}
}

// RefreshCount returns how many refresh calls were issued.
func (c *Coordinator) RefreshCount() int64 {
	return c.refreshes.Load()
}

// Refreshing reports whether a refresh is in flight.
func (c *Coordinator) Refreshing() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.refreshing
}

// Submit parks req, which failed with the stale access token. If a refresh
// is in flight req just joins the queue. If the store already moved past
// stale (a refresh completed meanwhile) req is replayed right away. Otherwise
// req triggers the refresh.
func (c *Coordinator) Submit(req *http.Request, stale string) *Pending {
	p := newPending(req)
	c.mux.Lock()
	if c.refreshing {
		c.pending = append(c.pending, p)
		queued := len(c.pending)
		c.mux.Unlock()
		c.logger.WithFields(logrus.Fields{"pending": p.ID, "queued": queued}).Debug("queued behind refresh")
		return p
	}
	if current, ok := c.store.Get(); ok && current.AccessToken != stale {
		c.mux.Unlock()
		go c.replayPending(p)
		return p
	}
	c.refreshing = true
	c.pending = append(c.pending, p)
	c.mux.Unlock()
	go c.refresh(req.Context(), stale)
	return p
}

// refresh obtains a new credential replacing stale. On failure the store is
// cleared only if it still holds stale, so a credential stored meanwhile
// (e.g. by a login) survives.
func (c *Coordinator) refresh(parent context.Context, stale string) {
	ctx := context.WithoutCancel(parent)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	c.refreshes.Add(1)
	started := time.Now()
	c.logger.Debug("refreshing access credential")
	token, err := c.refresher.Refresh(ctx)
	if err == nil && (token == nil || token.AccessToken == "") {
		err = ErrRefreshRejected
	}
	if err == nil {
		if serr := c.store.Set(token); serr != nil {
			c.logger.WithError(serr).Warn("failed to persist refreshed credential")
		}
	}
	superseded := false
	if err != nil {
		superseded = c.clearStale(stale)
	}

	c.mux.Lock()
	waiting := c.pending
	c.pending = nil
	c.refreshing = false
	c.mux.Unlock()

	fields := logrus.Fields{"waiting": len(waiting), "elapsed": time.Since(started)}
	if err != nil {
		expired := &SessionError{Err: err}
		c.logger.WithFields(fields).WithError(err).Warn("refresh failed, session expired")
		for _, p := range waiting {
			c.deliver(p, nil, expired)
		}
		if superseded {
			c.logger.Info("credential replaced during refresh, session kept")
			return
		}
		if c.onExpired != nil {
			c.onExpired(expired)
		}
		return
	}
	c.logger.WithFields(fields).Info("access credential refreshed")
	for _, p := range waiting {
		go c.replayPending(p)
	}
}

// clearStale clears the store unless it holds a credential other than stale;
// it reports whether the credential was superseded.
func (c *Coordinator) clearStale(stale string) bool {
	cleared, err := store.ClearIf(c.store, stale)
	if err != nil {
		c.logger.WithError(err).Warn("failed to clear credential")
	}
	return !cleared
}

func (c *Coordinator) replayPending(p *Pending) {
	resp, err := c.replay(p.Request)
	c.deliver(p, resp, err)
}

func (c *Coordinator) deliver(p *Pending, resp *http.Response, err error) {
	if !p.resolve(resp, err) {
		c.logger.WithField("pending", p.ID).Error("pending request already resolved")
		discard(resp)
	}
}
