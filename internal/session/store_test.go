package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"axolotl/internal/store"
	"axolotl/internal/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// countingFetcher returns a fixed user and counts calls.
type countingFetcher struct {
	calls atomic.Int32
	user  *types.User
	err   error
}

func (f *countingFetcher) Me(context.Context) (*types.User, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	u := *f.user
	return &u, nil
}

func newStore(t *testing.T, kv store.KV, f ProfileFetcher) *Store {
	t.Helper()
	s, err := New(kv, WithProfileFetcher(f))
	require.NoError(t, err)
	return s
}

func TestNew_ReadsPersistedToken(t *testing.T) {
	kv := store.NewMemoryKV()
	require.NoError(t, kv.Set(store.KeyToken, "persisted"))

	s := newStore(t, kv, nil)
	assert.Equal(t, "persisted", s.Token())
	assert.True(t, s.IsAuthenticated())
	assert.Nil(t, s.User(), "profile is loaded lazily")
}

func TestRefreshUser_NoTokenNoNetwork(t *testing.T) {
	f := &countingFetcher{user: &types.User{ID: 1}}
	s := newStore(t, store.NewMemoryKV(), f)

	require.NoError(t, s.RefreshUser(context.Background()))
	assert.Equal(t, int32(0), f.calls.Load())
	assert.Nil(t, s.User())
	assert.False(t, s.Loading())
}

func TestSetToken_ThenClear_ProfileStates(t *testing.T) {
	f := &countingFetcher{user: &types.User{ID: 7, Username: "alex", Email: "a@b.com"}}
	kv := store.NewMemoryKV()
	s := newStore(t, kv, f)

	var mu sync.Mutex
	var states []*types.User
	last := s.User()
	cancel := s.OnChange(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if snap.User != last {
			states = append(states, snap.User)
			last = snap.User
		}
	})
	defer cancel()

	ctx := context.Background()
	require.NoError(t, s.SetToken(ctx, "abc"))
	v, err := kv.Get(store.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", v, "token is written through")

	require.NoError(t, s.SetToken(ctx, ""))
	_, err = kv.Get(store.KeyToken)
	assert.ErrorIs(t, err, store.ErrNotFound, "empty token removes the key")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 2)
	if diff := cmp.Diff(f.user, states[0]); diff != "" {
		t.Errorf("first state mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, states[1])
}

func TestRefreshUser_FailureKeepsSession(t *testing.T) {
	f := &countingFetcher{user: &types.User{ID: 1, Username: "alex"}}
	s := newStore(t, store.NewMemoryKV(), f)
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "abc"))
	require.NotNil(t, s.User())

	f.err = errors.New("503 Service Unavailable")
	err := s.RefreshUser(ctx)
	require.Error(t, err)

	assert.Equal(t, "abc", s.Token(), "profile failure must not end the session")
	require.NotNil(t, s.User())
	assert.Equal(t, "alex", s.User().Username)
	assert.False(t, s.Loading())
}

func TestLogout(t *testing.T) {
	f := &countingFetcher{user: &types.User{ID: 1}}
	kv := store.NewMemoryKV()
	s := newStore(t, kv, f)
	ctx := context.Background()

	require.NoError(t, s.SetToken(ctx, "abc"))
	require.NoError(t, s.Logout(ctx))

	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, s.User())
	_, err := kv.Get(store.KeyToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestExpire_NoNetwork(t *testing.T) {
	f := &countingFetcher{user: &types.User{ID: 1}}
	kv := store.NewMemoryKV()
	s := newStore(t, kv, f)
	require.NoError(t, s.SetToken(context.Background(), "abc"))
	before := f.calls.Load()

	var got []Snapshot
	cancel := s.OnChange(func(snap Snapshot) { got = append(got, snap) })
	s.Expire()
	cancel()

	assert.Equal(t, before, f.calls.Load())
	assert.Equal(t, "", s.Token())
	assert.Nil(t, s.User())
	_, err := kv.Get(store.KeyToken)
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.Len(t, got, 1)
	assert.False(t, got[0].Authenticated())
}

func TestRefreshUser_Deduplicates(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	f := ProfileFetcherFunc(func(context.Context) (*types.User, error) {
		calls.Add(1)
		<-release
		return &types.User{ID: 1}, nil
	})

	kv := store.NewMemoryKV()
	require.NoError(t, kv.Set(store.KeyToken, "abc"))
	s := newStore(t, kv, f)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.RefreshUser(context.Background())
		}()
	}
	require.Eventually(t, s.Loading, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, s.Loading())
}

func TestRefreshUser_DropsStaleResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := ProfileFetcherFunc(func(context.Context) (*types.User, error) {
		close(started)
		<-release
		return &types.User{ID: 1, Username: "old"}, nil
	})

	kv := store.NewMemoryKV()
	require.NoError(t, kv.Set(store.KeyToken, "old-token"))
	s := newStore(t, kv, f)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.RefreshUser(context.Background())
	}()
	<-started
	s.Expire()
	close(release)
	<-done

	assert.Nil(t, s.User(), "a profile for a replaced token must not be cached")
	assert.False(t, s.Loading())
}

func TestSetUser_Notifies(t *testing.T) {
	s := newStore(t, store.NewMemoryKV(), nil)
	var n int
	cancel := s.OnChange(func(Snapshot) { n++ })

	u := &types.User{ID: 1}
	s.SetUser(u)
	s.SetUser(u)
	cancel()
	s.SetUser(nil)

	assert.Equal(t, 1, n)
}

func TestReload_AdoptsExternalToken(t *testing.T) {
	f := &countingFetcher{user: &types.User{ID: 3}}
	kv := store.NewMemoryKV()
	s := newStore(t, kv, f)
	ctx := context.Background()

	changed, err := s.Reload(ctx)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, kv.Set(store.KeyToken, "external"))
	changed, err = s.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "external", s.Token())
	assert.NotNil(t, s.User())

	require.NoError(t, kv.Delete(store.KeyToken))
	changed, err = s.Reload(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Nil(t, s.User())
}

func TestClaims(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         "a@b.com",
		"iss":         "pets-backend",
		"authorities": []string{"ROLE_USER"},
		"exp":         exp.Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)

	kv := store.NewMemoryKV()
	s := newStore(t, kv, nil)
	_, err = s.Claims()
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, kv.Set(store.KeyToken, signed))
	_, err = s.Reload(context.Background())
	require.NoError(t, err)

	c, err := s.Claims()
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", c.Subject)
	assert.Equal(t, "pets-backend", c.Issuer)
	assert.Equal(t, []string{"ROLE_USER"}, c.Authorities)
	assert.True(t, c.ExpiresAt.Equal(exp))
	assert.False(t, c.Expired(time.Now()))
	assert.True(t, c.Expired(exp.Add(time.Second)))
	assert.Equal(t, time.Duration(0), c.Remaining(exp.Add(time.Minute)))

	_, err = ParseClaims("opaque-token")
	assert.Error(t, err)
}

func TestWatcher_PicksUpExternalLogin(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "state.json")
	mine, err := store.NewFileKV(path, nil)
	require.NoError(t, err)
	other, err := store.NewFileKV(path, nil)
	require.NoError(t, err)

	f := &countingFetcher{user: &types.User{ID: 9}}
	s := newStore(t, mine, f)

	w, err := NewWatcher(s, path, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, other.Set(store.KeyToken, "from-other-process"))
	require.Eventually(t, func() bool { return s.Token() == "from-other-process" }, 3*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return s.User() != nil }, time.Second, 10*time.Millisecond)

	require.NoError(t, other.Delete(store.KeyToken))
	require.Eventually(t, func() bool { return !s.IsAuthenticated() }, 3*time.Second, 20*time.Millisecond)

	w.Stop()
	w.Stop()
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newStore(t, store.NewMemoryKV(), nil)
	w, err := NewWatcher(s, filepath.Join(t.TempDir(), "state.json"), nil)
	require.NoError(t, err)
	w.Stop()
	assert.NoError(t, w.Start(context.Background()), "start after stop is a no-op")
}
