// Package petdetail drives the pet detail screen: a polled snapshot of one
// pet plus action submission.
package petdetail

import (
	"context"
	"errors"
	"sync"

	"axolotl/internal/api"
	"axolotl/internal/poll"
	"axolotl/internal/types"

	"go.uber.org/zap"
)

// Fallback messages when an error carries no text.
const (
	MsgLoadFailed   = "Error loading pet"
	MsgActionFailed = "Action failed"
)

// Client is the part of the API the screen uses.
type Client interface {
	GetPet(ctx context.Context, id int64) (*types.Pet, error)
	Act(ctx context.Context, id int64, action types.Action) (*types.ActionResult, error)
}

// View is what the screen renders.
type View struct {
	ID     int64
	Pet    types.Pet
	HasPet bool
	Err    string
	Notice string
	Busy   bool
	Phase  poll.Phase
}

// Presenter polls one pet and submits actions against it.
type Presenter struct {
	id     int64
	client Client
	ctl    *poll.Controller[types.Pet]
	logger *zap.Logger

	mu     sync.Mutex
	notice string
	busy   bool
}

// New creates a presenter for pet id. Options are passed to the poll
// controller.
func New(client Client, id int64, logger *zap.Logger, opts ...poll.Option) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Presenter{id: id, client: client, logger: logger.With(zap.Int64("pet_id", id))}
	fetch := func(ctx context.Context) (types.Pet, error) {
		pet, err := client.GetPet(ctx, id)
		if err != nil {
			return types.Pet{}, userError(err, MsgLoadFailed)
		}
		return *pet, nil
	}
	p.ctl = poll.New(fetch, append([]poll.Option{poll.WithLogger(p.logger)}, opts...)...)
	return p
}

// ID returns the pet id.
func (p *Presenter) ID() int64 { return p.id }

// Start loads the pet and begins polling.
func (p *Presenter) Start(ctx context.Context) { p.ctl.Start(ctx) }

// Stop ends polling and waits for in-flight fetches.
func (p *Presenter) Stop() { p.ctl.Stop() }

// SetVisible pauses or resumes polling.
func (p *Presenter) SetVisible(v bool) { p.ctl.SetVisible(v) }

// Refresh reloads the pet now.
func (p *Presenter) Refresh(ctx context.Context) error { return p.ctl.Refresh(ctx) }

// Act submits action once. On success the pet is re-read immediately and the
// backend's message, if any, becomes the notice. On failure the backend's
// message is shown as the error and the snapshot is left as it was.
func (p *Presenter) Act(ctx context.Context, action types.Action) error {
	p.mu.Lock()
	p.busy = true
	p.notice = ""
	p.mu.Unlock()

	res, err := p.client.Act(ctx, p.id, action)

	p.mu.Lock()
	p.busy = false
	if err == nil {
		p.notice = res.Notice()
	}
	p.mu.Unlock()

	if err != nil {
		msg := api.Message(err, MsgActionFailed)
		p.logger.Info("action rejected", zap.String("action", string(action)), zap.String("reason", msg))
		p.ctl.ReportError(msg)
		return err
	}

	p.logger.Debug("action applied", zap.String("action", string(action)))
	if err := p.ctl.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Warn("refresh after action failed", zap.Error(err))
	}
	return nil
}

// View returns the current screen state.
func (p *Presenter) View() View {
	st := p.ctl.State()
	p.mu.Lock()
	defer p.mu.Unlock()
	return View{
		ID:     p.id,
		Pet:    st.Snapshot,
		HasPet: st.HasSnapshot,
		Err:    st.Err,
		Notice: p.notice,
		Busy:   p.busy,
		Phase:  st.Phase,
	}
}

// OnUpdate runs fn whenever the polled state changes.
func (p *Presenter) OnUpdate(fn func(View)) (cancel func()) {
	return p.ctl.OnUpdate(func(poll.State[types.Pet]) { fn(p.View()) })
}

// userError replaces an error with its user-facing text.
func userError(err error, fallback string) error {
	return &displayError{msg: api.Message(err, fallback), err: err}
}

type displayError struct {
	msg string
	err error
}

func (e *displayError) Error() string { return e.msg }
func (e *displayError) Unwrap() error { return e.err }
