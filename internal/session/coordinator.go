package session

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// Outcome tags what the coordinator decided to do with a failure.
type Outcome int

const (
	// Reject returns the error to the caller with no side effects.
	Reject Outcome = iota
	// RejectAndLogout ends the session, then returns the error.
	RejectAndLogout
	// Refresh runs (or joins) a refresh cycle.
	Refresh
	// Replay re-issues the original request after a settled refresh cycle.
	Replay
)

func (o Outcome) String() string {
	switch o {
	case Reject:
		return "reject"
	case RejectAndLogout:
		return "reject_and_logout"
	case Refresh:
		return "refresh"
	case Replay:
		return "replay"
	default:
		return ""
	}
}

// Decision pairs an [Outcome] with the error to surface, if any.
type Decision struct {
	Outcome Outcome
	Err     error
}

// Doer issues a request through the session client.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Paths names the backend auth endpoints the coordinator calls. The logout
// route belongs to the terminator, see [TerminatorOpts].
type Paths struct {
	Refresh string
	Me      string
}

// DefaultPaths returns the conventional auth routes.
func DefaultPaths() Paths {
	return Paths{Refresh: "/auth/refresh", Me: "/auth/me"}
}

// DefaultTerminalStatuses are the liveness-check statuses that end the session.
var DefaultTerminalStatuses = []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden}

// Stats counts coordinator activity since construction.
type Stats struct {
	Refreshes     int64
	LivenessCalls int64
	Replays       int64
	Terminations  int64
}

type waiter struct {
	done chan error
}

// CoordinatorOpts configures a [Coordinator].
type CoordinatorOpts struct {
	Critical         CriticalMode
	Terminator       Terminator
	Paths            Paths
	TerminalStatuses []int
	Logger           *log.Logger
}

// Coordinator decides whether a failed request can be recovered by refreshing
// the session and runs at most one refresh at a time.
//
// Requests that fail while a refresh is in flight queue as waiters and all
// observe the same outcome. The queue is drained and the refreshing flag is
// cleared in one critical section.
//
// Every refresh cycle has a generation. The session is ended at most once per
// generation, whether the refresh itself failed or the replays it released
// failed again.
type Coordinator struct {
	critical   CriticalMode
	terminator Terminator
	paths      Paths
	terminal   map[int]bool
	logger     *log.Logger
	doer       Doer

	mu         sync.Mutex
	refreshing bool
	waiters    []*waiter
	generation uint64
	terminated uint64

	refreshes     atomic.Int64
	livenessCalls atomic.Int64
	replays       atomic.Int64
	terminations  atomic.Int64
}

// NewCoordinator creates a [Coordinator]. It is bound to a [Client] by [NewClient].
func NewCoordinator(opts CoordinatorOpts) *Coordinator {
	if opts.Critical == nil {
		opts.Critical = &Flag{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Paths == (Paths{}) {
		opts.Paths = DefaultPaths()
	}
	if opts.TerminalStatuses == nil {
		opts.TerminalStatuses = DefaultTerminalStatuses
	}

	terminal := make(map[int]bool, len(opts.TerminalStatuses))
	for _, status := range opts.TerminalStatuses {
		terminal[status] = true
	}

	return &Coordinator{
		critical:   opts.Critical,
		terminator: opts.Terminator,
		paths:      opts.Paths,
		terminal:   terminal,
		logger:     shared.WithLogger(opts.Logger, "component", "coordinator"),
	}
}

func (c *Coordinator) bind(d Doer) {
	c.doer = d
}

// Decide classifies a failure without performing any side effect.
func (c *Coordinator) Decide(req *Request, err error) Decision {
	if c.critical.Active() {
		return Decision{Outcome: Reject, Err: err}
	}

	if req == nil || req.SkipAuthRefresh || StatusOf(err) != http.StatusUnauthorized {
		return Decision{Outcome: Reject, Err: err}
	}

	if req.Path == c.paths.Refresh {
		return Decision{Outcome: Reject, Err: err}
	}

	if req.retried {
		return Decision{Outcome: RejectAndLogout, Err: err}
	}

	return Decision{Outcome: Refresh}
}

// HandleFailure either recovers req by refreshing the session and replaying
// it once, or returns err (possibly after ending the session).
func (c *Coordinator) HandleFailure(ctx context.Context, req *Request, err error) (*Response, error) {
	decision := c.Decide(req, err)

	switch decision.Outcome {
	case Reject:
		return nil, decision.Err
	case RejectAndLogout:
		c.logger.Warn("request failed again after refresh", "path", req.Path, "request_id", req.ID, "cycle", req.cycle)
		c.terminate(ctx, req.cycle, decision.Err)
		return nil, decision.Err
	}

	req.retried = true

	result, gen := c.cycle(ctx)
	req.cycle = gen
	if result.Outcome != Replay {
		return nil, result.Err
	}

	c.replays.Add(1)
	c.logger.Debug("replaying request", "path", req.Path, "request_id", req.ID)
	return c.doer.Do(ctx, req)
}

// Refresh runs a refresh cycle, or joins the one in flight, without a
// triggering request.
func (c *Coordinator) Refresh(ctx context.Context) error {
	result, _ := c.cycle(ctx)
	if result.Outcome == Replay {
		return nil
	}
	return result.Err
}

// Refreshing reports whether a refresh call is currently in flight.
func (c *Coordinator) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshing
}

// Stats returns a snapshot of the coordinator's counters.
func (c *Coordinator) Stats() Stats {
	return Stats{
		Refreshes:     c.refreshes.Load(),
		LivenessCalls: c.livenessCalls.Load(),
		Replays:       c.replays.Load(),
		Terminations:  c.terminations.Load(),
	}
}

// cycle returns Replay once the session is usable again, otherwise the
// refresh error tagged Reject or RejectAndLogout, along with the generation
// of the cycle that was run or joined.
func (c *Coordinator) cycle(ctx context.Context) (Decision, uint64) {
	c.mu.Lock()
	if c.refreshing {
		gen := c.generation
		w := &waiter{done: make(chan error, 1)}
		c.waiters = append(c.waiters, w)
		queued := len(c.waiters)
		c.mu.Unlock()

		c.logger.Debug("waiting on in-flight refresh", "waiters", queued, "cycle", gen)

		select {
		case err := <-w.done:
			if err != nil {
				return Decision{Outcome: Reject, Err: err}, gen
			}
			return Decision{Outcome: Replay}, gen
		case <-ctx.Done():
			return Decision{Outcome: Reject, Err: ctx.Err()}, gen
		}
	}
	c.refreshing = true
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	result := c.refresh(context.WithoutCancel(ctx))
	c.settle(result)

	if result.Outcome == RejectAndLogout {
		c.terminate(ctx, gen, result.Err)
	}

	return result, gen
}

func (c *Coordinator) refresh(ctx context.Context) Decision {
	c.refreshes.Add(1)
	c.logger.Info("refreshing session")

	refreshErr := c.call(ctx, http.MethodPost, c.paths.Refresh)
	if refreshErr == nil {
		c.logger.Info("session refreshed")
		return Decision{Outcome: Replay}
	}

	c.logger.Warn("refresh failed, checking session liveness", "error", refreshErr)
	c.livenessCalls.Add(1)

	livenessErr := c.call(ctx, http.MethodGet, c.paths.Me)
	if livenessErr == nil {
		c.logger.Info("session still valid after failed refresh")
		return Decision{Outcome: Replay}
	}

	err := fmt.Errorf("%w: %w", shared.ErrRefreshFailed, refreshErr)

	status := StatusOf(livenessErr)
	if !c.critical.Active() && c.terminal[status] {
		return Decision{Outcome: RejectAndLogout, Err: err}
	}

	c.logger.Warn("session liveness unknown, keeping session", "status", status, "error", livenessErr)
	return Decision{Outcome: Reject, Err: err}
}

func (c *Coordinator) call(ctx context.Context, method, path string) error {
	req := NewRequest(method, path, nil)
	req.SkipAuthRefresh = true
	_, err := c.doer.Do(ctx, req)
	return err
}

// settle drains every waiter in FIFO order and clears the refreshing flag.
func (c *Coordinator) settle(result Decision) {
	var err error
	if result.Outcome != Replay {
		err = result.Err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.waiters) > 0 {
		c.logger.Debug("settling waiters", "waiters", len(c.waiters), "outcome", result.Outcome)
	}

	for _, w := range c.waiters {
		w.done <- err
	}
	c.waiters = nil
	c.refreshing = false
}

// terminate runs the terminator at most once per refresh cycle generation.
// Failures from a generation at or below the last terminated one are dropped.
func (c *Coordinator) terminate(ctx context.Context, gen uint64, cause error) {
	if c.terminator == nil {
		return
	}

	c.mu.Lock()
	if gen <= c.terminated {
		c.mu.Unlock()
		c.logger.Debug("session already ended for cycle", "cycle", gen)
		return
	}
	c.terminated = gen
	c.mu.Unlock()

	c.terminations.Add(1)
	c.terminator.Terminate(context.WithoutCancel(ctx), cause)
}
