// Package session holds the client's authentication state: the bearer token,
// mirrored to durable storage, and a cached copy of the signed-in user's
// profile.
//
// The token is the only source of truth for "signed in". A present token is
// not a validity guarantee; the server decides that on the next request, and
// a 401 clears the session through Expire.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"axolotl/internal/store"
	"axolotl/internal/types"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ProfileFetcher loads the current user's profile.
type ProfileFetcher interface {
	Me(ctx context.Context) (*types.User, error)
}

// ProfileFetcherFunc adapts a function to ProfileFetcher.
type ProfileFetcherFunc func(ctx context.Context) (*types.User, error)

func (f ProfileFetcherFunc) Me(ctx context.Context) (*types.User, error) { return f(ctx) }

// Snapshot is the observable session state.
type Snapshot struct {
	Token   string
	User    *types.User
	Loading bool
}

// Authenticated reports whether a token is present.
func (s Snapshot) Authenticated() bool { return s.Token != "" }

// Store is the session store. Create it with New; it is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	kv      store.KV
	token   string
	user    *types.User
	loading bool
	gen     uint64 // bumped on every token change; stale profile fetches are dropped

	fetcher ProfileFetcher
	logger  *zap.Logger
	flight  singleflight.Group

	listenerMu sync.Mutex
	listeners  map[int]func(Snapshot)
	nextID     int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithProfileFetcher sets where profiles come from.
func WithProfileFetcher(f ProfileFetcher) Option {
	return func(s *Store) { s.fetcher = f }
}

// New creates a Store and reads the persisted token synchronously, so a
// restart never starts signed out when a token was saved.
func New(kv store.KV, opts ...Option) (*Store, error) {
	s := &Store{
		kv:        kv,
		logger:    zap.NewNop(),
		listeners: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}

	token, err := store.GetOr(kv, store.KeyToken, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read stored token: %w", err)
	}
	s.token = token
	s.logger.Debug("session loaded", zap.Bool("authenticated", token != ""))
	return s, nil
}

// SetProfileFetcher binds the fetcher after construction. The API client
// needs the store as its token source, so the two are wired in two steps.
func (s *Store) SetProfileFetcher(f ProfileFetcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetcher = f
}

// =============================================================================
// READERS
// =============================================================================

// Token returns the bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is present. It does not check
// validity.
func (s *Store) IsAuthenticated() bool {
	return s.Token() != ""
}

// User returns the cached profile, or nil.
func (s *Store) User() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Loading reports whether a profile fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Token: s.token, User: s.user, Loading: s.loading}
}

// =============================================================================
// MUTATORS
// =============================================================================

// SetToken persists token ("" removes it), updates the session and refreshes
// the profile. A failed profile fetch is logged and does not end the session.
func (s *Store) SetToken(ctx context.Context, token string) error {
	if err := s.persist(token); err != nil {
		return err
	}
	s.swapToken(token, false)
	_ = s.RefreshUser(ctx)
	return nil
}

// Logout clears the token and the cached profile.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.SetToken(ctx, ""); err != nil {
		return err
	}
	s.SetUser(nil)
	s.logger.Info("logged out")
	return nil
}

// Expire ends the session after the server rejected the token. It never
// touches the network.
func (s *Store) Expire() {
	if err := s.persist(""); err != nil {
		s.logger.Error("failed to remove expired token", zap.Error(err))
	}
	s.swapToken("", true)
	s.logger.Info("session expired")
}

// SetUser replaces the cached profile, e.g. with the result of a profile save.
func (s *Store) SetUser(u *types.User) {
	s.mu.Lock()
	if s.user == u {
		s.mu.Unlock()
		return
	}
	s.user = u
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Reload re-reads the persisted token and adopts it when another process
// changed it. It reports whether the session changed.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	token, err := store.GetOr(s.kv, store.KeyToken, "")
	if err != nil {
		return false, err
	}
	if token == s.Token() {
		return false, nil
	}
	s.swapToken(token, token == "")
	s.logger.Info("token changed on disk", zap.Bool("authenticated", token != ""))
	_ = s.RefreshUser(ctx)
	return true, nil
}

// RefreshUser reloads the cached profile. Without a token it clears the
// profile and makes no network call. On failure the token and the previous
// profile are kept. Concurrent calls for the same token share one fetch.
func (s *Store) RefreshUser(ctx context.Context) error {
	s.mu.Lock()
	token, gen, fetcher := s.token, s.gen, s.fetcher
	if token == "" {
		changed := s.user != nil || s.loading
		s.user, s.loading = nil, false
		snap := s.snapshotLocked()
		s.mu.Unlock()
		if changed {
			s.notify(snap)
		}
		return nil
	}
	s.mu.Unlock()

	if fetcher == nil {
		return errors.New("no profile fetcher configured")
	}

	_, err, _ := s.flight.Do(token, func() (any, error) {
		s.setLoading(gen, true)
		user, err := fetcher.Me(ctx)

		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return nil, err
		}
		s.loading = false
		if err == nil {
			s.user = user
		}
		snap := s.snapshotLocked()
		s.mu.Unlock()

		s.notify(snap)
		return nil, err
	})
	if err != nil {
		s.logger.Warn("failed to load profile", zap.Error(err))
	}
	return err
}

func (s *Store) setLoading(gen uint64, loading bool) {
	s.mu.Lock()
	if s.gen != gen || s.loading == loading {
		s.mu.Unlock()
		return
	}
	s.loading = loading
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// swapToken changes the in-memory token. clearUser also drops the profile.
func (s *Store) swapToken(token string, clearUser bool) {
	s.mu.Lock()
	if s.token != token {
		s.token = token
		s.gen++
		s.loading = false
	}
	if clearUser {
		s.user = nil
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Store) persist(token string) error {
	var err error
	if token == "" {
		err = s.kv.Delete(store.KeyToken)
	} else {
		err = s.kv.Set(store.KeyToken, token)
	}
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// =============================================================================
// LISTENERS
// =============================================================================

// OnChange registers fn to run after every state change. Listeners run on the
// goroutine that made the change, outside the store's lock. The returned
// function unregisters fn.
func (s *Store) OnChange(fn func(Snapshot)) (cancel func()) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.listenerMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
