package poll

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
	"valplus/internal/api"
	"valplus/internal/auth"
	"valplus/internal/config"
	"valplus/internal/constants"
	"valplus/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type State int

const (
	StateWaitingAuth State = iota
	StateIdle
	StatePolling
	StateApplying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateApplying:
		return "applying"
	default:
		return "waiting_auth"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Reconciler interface {
	Reconcile(ctx context.Context, session domain.SessionContext, previous domain.MatchRef) (*domain.Snapshot, error)
}

type SettingsSource interface {
	Get() config.Settings
}

type Status struct {
	State         State           `json:"state"`
	Authenticated bool            `json:"authenticated"`
	AutoRefresh   bool            `json:"auto_refresh"`
	Match         domain.MatchRef `json:"match"`
	LastError     string          `json:"last_error,omitempty"`
	LastPoll      *time.Time      `json:"last_poll,omitempty"`
	NextPollIn    float64         `json:"next_poll_in_seconds"`
}

// Cycle runs at most one reconciliation at a time and publishes every new
// snapshot. A failed or empty poll never replaces the published snapshot.
type Cycle struct {
	auth       auth.Authenticator
	reconciler Reconciler
	settings   SettingsSource
	logger     zerolog.Logger

	mu         sync.Mutex
	state      State
	session    *domain.SessionContext
	cursor     domain.MatchRef
	generation uint64
	forced     bool
	lastPoll   time.Time
	nextPoll   time.Time
	lastErr    error

	current   atomic.Pointer[domain.Snapshot]
	snapshots chan domain.Snapshot
	wake      chan struct{}

	// single-flight: limit 1, TryGo refuses while a poll is outstanding
	inflight errgroup.Group

	tick   time.Duration
	now    func() time.Time
	cancel context.CancelFunc
	done   chan struct{}
	stop   sync.Once
	wg     sync.WaitGroup
}

func NewCycle(authenticator auth.Authenticator, reconciler Reconciler, settings SettingsSource, logger zerolog.Logger) *Cycle {
	c := &Cycle{
		auth:       authenticator,
		reconciler: reconciler,
		settings:   settings,
		logger:     logger,
		state:      StateWaitingAuth,
		snapshots:  make(chan domain.Snapshot, 1),
		wake:       make(chan struct{}, 1),
		tick:       constants.PollTickResolution,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	c.inflight.SetLimit(1)
	return c
}

// Snapshots delivers published snapshots. Only the newest is kept when the
// reader falls behind.
func (c *Cycle) Snapshots() <-chan domain.Snapshot {
	return c.snapshots
}

// Current returns a copy of the last published snapshot, or nil.
func (c *Cycle) Current() *domain.Snapshot {
	snap := c.current.Load()
	if snap == nil {
		return nil
	}
	cp := snap.Clone()
	return &cp
}

// ForceRefresh makes the next poll due immediately. A poll already in flight
// finishes but its result is dropped.
func (c *Cycle) ForceRefresh() {
	c.mu.Lock()
	c.generation++
	c.forced = true
	c.nextPoll = time.Time{}
	c.mu.Unlock()

	c.signal()
	c.logger.Info().Msg("refresh requested")
}

func (c *Cycle) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:         c.state,
		Authenticated: c.session != nil,
		AutoRefresh:   c.settings.Get().AutoRefresh,
		Match:         c.cursor,
	}
	if c.lastErr != nil {
		st.LastError = c.lastErr.Error()
	}
	if !c.lastPoll.IsZero() {
		lp := c.lastPoll
		st.LastPoll = &lp
	}
	if wait := c.nextPoll.Sub(c.now()); wait > 0 {
		st.NextPollIn = wait.Seconds()
	}
	return st
}

// Start runs the loop in the background until Stop.
func (c *Cycle) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.Run(ctx)
	}()
	c.logger.Info().Msg("poll cycle started")
}

func (c *Cycle) Stop() {
	c.stop.Do(func() {
		close(c.done)
		if c.cancel != nil {
			c.cancel()
		}
		c.wg.Wait()
		c.logger.Info().Msg("poll cycle stopped")
	})
}

// Run drives the state machine until ctx is cancelled or Stop is called, then
// waits for an outstanding poll to return.
func (c *Cycle) Run(ctx context.Context) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	defer c.inflight.Wait()

	c.step(ctx)
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.step(ctx)
		case <-c.wake:
			c.step(ctx)
		}
	}
}

func (c *Cycle) step(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StatePolling || c.state == StateApplying {
		return
	}
	if c.now().Before(c.nextPoll) {
		return
	}
	if c.session != nil && !c.forced && !c.settings.Get().AutoRefresh {
		return
	}

	gen := c.generation
	session := c.session
	cursor := c.cursor
	prev := c.state

	c.state = StatePolling
	c.forced = false
	if !c.inflight.TryGo(func() error {
		c.poll(ctx, gen, session, cursor)
		return nil
	}) {
		c.state = prev
	}
}

func (c *Cycle) poll(ctx context.Context, gen uint64, session *domain.SessionContext, cursor domain.MatchRef) {
	ctx, cancel := context.WithTimeout(ctx, constants.ReconcileTimeout)
	defer cancel()

	if session == nil {
		s, err := c.auth.Authenticate(ctx)
		if err != nil {
			c.authFailed(err)
			return
		}
		c.logger.Info().Str("player_id", s.PlayerID).Str("region", s.Region).Str("shard", s.Shard).Msg("game session acquired")
		session = &s
	}

	snap, err := c.reconciler.Reconcile(ctx, *session, cursor)
	c.apply(gen, session, snap, err)
}

func (c *Cycle) authFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.lastPoll = now
	c.lastErr = err
	c.state = StateWaitingAuth
	c.nextPoll = now.Add(c.settings.Get().AuthRetryInterval)

	if errors.Is(err, auth.ErrAuthUnavailable) {
		c.logger.Debug().Err(err).Msg("waiting for game session")
		return
	}
	c.logger.Warn().Err(err).Msg("authentication failed")
}

func (c *Cycle) apply(gen uint64, session *domain.SessionContext, snap *domain.Snapshot, err error) {
	c.mu.Lock()

	now := c.now()
	c.lastPoll = now
	c.session = session

	if gen != c.generation {
		c.state = StateIdle
		c.mu.Unlock()
		c.logger.Debug().Msg("discarding superseded poll result")
		c.signal()
		return
	}

	if err != nil {
		c.lastErr = err
		if api.IsStatus(err, http.StatusUnauthorized) || api.IsStatus(err, http.StatusForbidden) {
			c.session = nil
			c.state = StateWaitingAuth
		} else {
			c.state = StateIdle
		}
		c.nextPoll = now.Add(c.settings.Get().PollInterval)
		c.mu.Unlock()

		c.logger.Warn().Err(err).Bool("retryable", api.IsRetryable(err)).Msg("poll failed, keeping last snapshot")
		return
	}

	c.lastErr = nil
	if snap == nil {
		c.state = StateIdle
		c.nextPoll = now.Add(c.settings.Get().PollInterval)
		c.mu.Unlock()
		return
	}

	c.cursor = snap.Match
	c.state = StateApplying
	c.mu.Unlock()

	c.publish(*snap)

	c.mu.Lock()
	c.state = StateIdle
	c.nextPoll = c.now().Add(c.settings.Get().PollInterval)
	c.mu.Unlock()
}

func (c *Cycle) publish(snap domain.Snapshot) {
	stored := snap.Clone()
	c.current.Store(&stored)

	out := snap.Clone()
	select {
	case c.snapshots <- out:
	default:
		select {
		case <-c.snapshots:
		default:
		}
		select {
		case c.snapshots <- out:
		default:
		}
	}

	c.logger.Info().
		Str("match_id", snap.Match.ID).
		Str("phase", string(snap.Match.Phase)).
		Int("players", len(snap.Players)).
		Msg("snapshot published")
}

func (c *Cycle) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
