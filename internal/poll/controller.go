// Package poll keeps a snapshot of one remote resource fresh.
//
// A Controller fetches once when started and then on every tick of a fixed
// interval, but only while the host is visible. Hiding the host stops the
// ticker (Paused); showing it installs a new one (Polling) without an extra
// fetch, so the next fetch happens on the next tick. Results are applied in
// the order they resolve, not the order they were sent.
package poll

import (
	"context"
	"sync"
	"time"

	"axolotl/internal/metrics"

	"go.uber.org/zap"
)

// DefaultInterval is the refresh period when none is configured.
const DefaultInterval = 5 * time.Second

// FetchFunc loads the current value of the resource.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Phase is the controller's lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePolling
	PhasePaused
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePolling:
		return "polling"
	case PhasePaused:
		return "paused"
	case PhaseStopped:
		return "stopped"
	}
	return "unknown"
}

// State is what a view renders.
type State[T any] struct {
	Snapshot    T
	HasSnapshot bool
	Err         string // "" when the last fetch succeeded
	Phase       Phase
	Visible     bool
}

// =============================================================================
// TICKERS
// =============================================================================

// Ticker is the subset of *time.Ticker the controller needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a running ticker.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Option configures a Controller.
type Option func(*options)

type options struct {
	interval  time.Duration
	newTicker TickerFactory
	logger    *zap.Logger
	recorder  metrics.Recorder
	visible   bool
}

// WithInterval sets the tick period. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithTicker replaces the ticker factory.
func WithTicker(f TickerFactory) Option {
	return func(o *options) { o.newTicker = f }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRecorder reports each fetch outcome.
func WithRecorder(rec metrics.Recorder) Option {
	return func(o *options) { o.recorder = rec }
}

// WithVisible sets the initial visibility (default true).
func WithVisible(v bool) Option {
	return func(o *options) { o.visible = v }
}

// Controller polls one resource.
type Controller[T any] struct {
	fetch FetchFunc[T]
	opts  options

	mu       sync.Mutex
	state    State[T]
	ctx      context.Context
	cancel   context.CancelFunc
	ticker   Ticker
	tickStop chan struct{}
	wg       sync.WaitGroup

	listeners map[int]func(State[T])
	nextID    int
}

// New creates an idle controller.
func New[T any](fetch FetchFunc[T], opts ...Option) *Controller[T] {
	o := options{
		interval:  DefaultInterval,
		newTicker: NewRealTicker,
		logger:    zap.NewNop(),
		recorder:  metrics.Nop{},
		visible:   true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller[T]{
		fetch:     fetch,
		opts:      o,
		state:     State[T]{Phase: PhaseIdle, Visible: o.visible},
		listeners: make(map[int]func(State[T])),
	}
}

// Interval returns the tick period.
func (c *Controller[T]) Interval() time.Duration {
	return c.opts.interval
}

// Start fetches once immediately and, when visible, installs the ticker. It
// is a no-op unless the controller is idle.
func (c *Controller[T]) Start(ctx context.Context) {
	c.mu.Lock()
	if c.state.Phase != PhaseIdle {
		c.mu.Unlock()
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	if c.state.Visible {
		c.state.Phase = PhasePolling
		c.installLocked()
	} else {
		c.state.Phase = PhasePaused
	}
	c.spawnFetchLocked()
	st := c.state
	c.mu.Unlock()

	c.opts.logger.Debug("poll started", zap.Duration("interval", c.opts.interval))
	c.notify(st)
}

// Stop cancels the ticker and any in-flight fetch, drops every listener and
// waits for all controller goroutines to exit. It is safe to call twice.
func (c *Controller[T]) Stop() {
	c.mu.Lock()
	if c.state.Phase == PhaseStopped {
		c.mu.Unlock()
		return
	}
	c.removeLocked()
	c.state.Phase = PhaseStopped
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	c.listeners = make(map[int]func(State[T]))
	c.mu.Unlock()
	c.opts.logger.Debug("poll stopped")
}

// SetVisible moves between Polling and Paused. Becoming visible installs a
// new ticker but does not fetch.
func (c *Controller[T]) SetVisible(visible bool) {
	c.mu.Lock()
	if !c.setVisibleLocked(visible) {
		c.mu.Unlock()
		return
	}
	st := c.state
	c.mu.Unlock()

	c.opts.logger.Debug("visibility changed", zap.Bool("visible", visible), zap.Stringer("phase", st.Phase))
	c.notify(st)
}

// Refresh fetches now, outside the ticker, and waits for the result to be
// applied. It returns the fetch error, if any.
func (c *Controller[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Phase == PhaseIdle || c.state.Phase == PhaseStopped {
		c.mu.Unlock()
		return context.Canceled
	}
	parent := c.ctx
	c.wg.Add(1)
	c.mu.Unlock()
	defer c.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopOnParent := context.AfterFunc(parent, cancel)
	defer stopOnParent()

	return c.runFetch(ctx)
}

// ReportError shows msg without touching the snapshot.
func (c *Controller[T]) ReportError(msg string) {
	c.mu.Lock()
	c.state.Err = msg
	st := c.state
	c.mu.Unlock()
	c.notify(st)
}

// State returns the current state.
func (c *Controller[T]) State() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnUpdate registers fn to run after every state change, on the goroutine
// that made it. The returned function unregisters fn.
func (c *Controller[T]) OnUpdate(fn func(State[T])) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// =============================================================================
// INTERNALS
// =============================================================================

// setVisibleLocked applies a visibility change and reports whether anything
// changed. c.mu must be held.
func (c *Controller[T]) setVisibleLocked(visible bool) bool {
	if c.state.Visible == visible {
		return false
	}
	c.state.Visible = visible
	switch c.state.Phase {
	case PhasePolling:
		if !visible {
			c.removeLocked()
			c.state.Phase = PhasePaused
		}
	case PhasePaused:
		if visible {
			c.installLocked()
			c.state.Phase = PhasePolling
		}
	}
	return true
}

// installLocked starts a ticker and its loop. c.mu must be held.
func (c *Controller[T]) installLocked() {
	t := c.opts.newTicker(c.opts.interval)
	stop := make(chan struct{})
	c.ticker, c.tickStop = t, stop
	c.wg.Add(1)
	go c.tickLoop(c.ctx, t, stop)
}

// removeLocked stops the current ticker, if any. c.mu must be held.
func (c *Controller[T]) removeLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.tickStop)
	c.ticker, c.tickStop = nil, nil
}

func (c *Controller[T]) tickLoop(ctx context.Context, t Ticker, stop chan struct{}) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-t.C():
			c.mu.Lock()
			// A tick received just before a pause/resume belongs to a
			// ticker that is no longer current.
			if c.tickStop == stop && c.state.Phase == PhasePolling && c.state.Visible {
				c.spawnFetchLocked()
			}
			c.mu.Unlock()
		}
	}
}

// spawnFetchLocked runs one fetch in the background. c.mu must be held.
func (c *Controller[T]) spawnFetchLocked() {
	ctx := c.ctx
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = c.runFetch(ctx)
	}()
}

func (c *Controller[T]) runFetch(ctx context.Context) error {
	v, err := c.fetch(ctx)

	c.mu.Lock()
	if c.state.Phase == PhaseStopped || ctx.Err() != nil {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.state.Err = err.Error()
	} else {
		c.state.Snapshot = v
		c.state.HasSnapshot = true
		c.state.Err = ""
	}
	st := c.state
	c.mu.Unlock()

	c.opts.recorder.RecordPoll(err == nil)
	if err != nil {
		c.opts.logger.Warn("fetch failed", zap.Error(err))
	}
	c.notify(st)
	return err
}

func (c *Controller[T]) notify(st State[T]) {
	c.mu.Lock()
	fns := make([]func(State[T]), 0, len(c.listeners))
	for id := 0; id < c.nextID; id++ {
		if fn, ok := c.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
