package service

import (
	"context"
	"errors"
	"sync"

	"github.com/Falconext/pos-web-sub003/internal/observability/metrics"
)

type CoordinatorState int

const (
	StateIdle CoordinatorState = iota
	StateRefreshing
)

func (s CoordinatorState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRefreshing:
		return "REFRESHING"
	default:
		return "UNKNOWN"
	}
}

var ErrLeaderTicket = errors.New("leader ticket cannot wait for a refresh")

type settlement struct {
	token string
	err   error
}

// Ticket is handed out by Join. The leader performs the refresh and settles
// the wave; every other holder waits for that settlement.
type Ticket struct {
	leader  bool
	ch      chan settlement
	coord   *RefreshCoordinator
	settled bool
}

func (t *Ticket) Leader() bool {
	return t.leader
}

// Settle ends the wave held by a leader ticket. Only the first call has an
// effect; waiter tickets never settle.
func (t *Ticket) Settle(token string, err error) int {
	if !t.leader || t.settled {
		return 0
	}
	t.settled = true
	return t.coord.Settle(token, err)
}

func (t *Ticket) Settled() bool {
	return t.settled
}

// Wait blocks until the wave settles or ctx is done.
func (t *Ticket) Wait(ctx context.Context) (string, error) {
	if t.leader {
		return "", ErrLeaderTicket
	}
	select {
	case s := <-t.ch:
		return s.token, s.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// RefreshCoordinator allows at most one refresh in flight and queues every
// request that hits an expired credential meanwhile.
type RefreshCoordinator struct {
	mu      sync.Mutex
	state   CoordinatorState
	pending []chan settlement
}

func NewRefreshCoordinator() *RefreshCoordinator {
	return &RefreshCoordinator{state: StateIdle}
}

func (c *RefreshCoordinator) Join() *Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		c.state = StateRefreshing
		return &Ticket{leader: true, coord: c}
	}

	ch := make(chan settlement, 1)
	c.pending = append(c.pending, ch)
	metrics.GatewayPendingRequests.Inc()
	return &Ticket{ch: ch}
}

// Settle completes the wave: every queued waiter receives token and err in
// enqueue order, then the coordinator returns to IDLE. It returns the number
// of waiters settled.
func (c *RefreshCoordinator) Settle(token string, err error) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return 0
	}

	settled := len(c.pending)
	for _, ch := range c.pending {
		ch <- settlement{token: token, err: err}
	}
	c.pending = nil
	c.state = StateIdle
	metrics.GatewayPendingRequests.Sub(float64(settled))
	return settled
}

func (c *RefreshCoordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *RefreshCoordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
