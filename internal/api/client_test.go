package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"axolotl/internal/apitest"
	"axolotl/internal/types"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder captures metrics calls.
type recorder struct {
	mu       sync.Mutex
	requests []string
	expired  int
	failures int
}

func (r *recorder) RecordRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, method+" "+route+" "+http.StatusText(status))
}

func (r *recorder) RecordTransportError(string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

func (r *recorder) RecordSessionExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired++
}

func (r *recorder) RecordPoll(bool) {}

func newClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8080", "://x"} {
		_, err := New(u)
		assert.Error(t, err, "base URL %q", u)
	}
}

func TestClient_EmptyBodyIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/no-content":
			w.WriteHeader(http.StatusNoContent)
		case "/blank":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("  \n"))
		}
	}))
	defer srv.Close()
	c := newClient(t, srv.URL)

	ctx := context.Background()
	for _, path := range []string{"/no-content", "/blank"} {
		got, err := c.Get(ctx, path)
		require.NoError(t, err, path)
		assert.Nil(t, got, path)

		got, err = c.Post(ctx, path, map[string]string{"k": "v"})
		require.NoError(t, err, path)
		assert.Nil(t, got, path)

		got, err = c.Put(ctx, path, nil)
		require.NoError(t, err, path)
		assert.Nil(t, got, path)

		got, err = c.Delete(ctx, path)
		require.NoError(t, err, path)
		assert.Nil(t, got, path)
	}
}

func TestClient_ParsesJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	got, err := newClient(t, srv.URL).Get(context.Background(), "/x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(got))
}

func TestClient_InvalidJSONIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Get(context.Background(), "/x")
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message field", 400, `{"message":"too hungry to play"}`, "too hungry to play"},
		{"error field", 409, `{"error":"Email already registered"}`, "Email already registered"},
		{"message wins over error", 400, `{"message":"m","error":"e"}`, "m"},
		{"empty message falls to error", 400, `{"message":"","error":"e"}`, "e"},
		{"no fields", 500, `{}`, "500 Internal Server Error"},
		{"not json", 502, `bad gateway`, "502 Bad Gateway"},
		{"empty body", 404, ``, "404 Not Found"},
		{"non-string message", 400, `{"message":{"x":1}}`, "400 Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL).Get(context.Background(), "/x")
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	rec := &recorder{}
	failing := DoerFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	c := newClient(t, "http://api.test", WithHTTPClient(failing), WithRecorder(rec))

	_, err := c.Get(context.Background(), "/api/pets")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, rec.failures)
}

func TestClient_BearerHeader(t *testing.T) {
	srv := apitest.New(t)
	token := srv.AddUser("a@b.com", "1234", "alex")

	var current string
	c := newClient(t, srv.URL, WithTokenSource(TokenFunc(func() string { return current })))
	ctx := context.Background()

	// No token: header omitted.
	_, _ = c.Get(ctx, PathMe)
	current = token
	_, err := c.Get(ctx, PathMe)
	require.NoError(t, err)
	_, _ = c.Post(ctx, PathLogin, types.Credentials{Email: "a@b.com", Password: "1234"}, Anonymous())

	reqs := srv.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "", reqs[0].Authorization)
	assert.Equal(t, "Bearer "+token, reqs[1].Authorization)
	assert.Equal(t, "", reqs[2].Authorization, "anonymous calls never carry a token")
	for _, r := range reqs {
		assert.NotEmpty(t, r.RequestID)
	}
}

func TestClient_401ExpiresOnEveryEndpoint(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("a@b.com", "1234", "alex")

	var hooked []string
	rec := &recorder{}
	c := newClient(t, srv.URL,
		WithTokenSource(TokenFunc(func() string { return "stale" })),
		WithRecorder(rec),
		WithExpiryHook(func(req *http.Request) { hooked = append(hooked, req.Method+" "+req.URL.Path) }),
	)
	ctx := context.Background()

	calls := []func() error{
		func() error { _, err := c.Me(ctx); return err },
		func() error { _, err := c.UpdateMe(ctx, types.ProfileUpdate{Username: "x"}); return err },
		func() error { _, err := c.ListPets(ctx); return err },
		func() error { _, err := c.GetPet(ctx, 1); return err },
		func() error { _, err := c.CreatePet(ctx, types.NewPet{Name: "a", Color: types.ColorPink}); return err },
		func() error { _, err := c.UpdatePet(ctx, 1, types.PetUpdate{Hunger: 1, Happiness: 1}); return err },
		func() error { return c.DeletePet(ctx, 1) },
		func() error { _, err := c.Act(ctx, 1, types.ActionFeed); return err },
		func() error {
			_, err := c.Login(ctx, types.Credentials{Email: "a@b.com", Password: "wrong"})
			return err
		},
	}
	for i, call := range calls {
		err := call()
		require.Error(t, err, "call %d", i)
		assert.True(t, IsUnauthorized(err), "call %d: %v", i, err)
		assert.Len(t, hooked, i+1, "hook must run before the error reaches the caller")
	}
	assert.Equal(t, len(calls), rec.expired)
}

func TestExpireOn401_Standalone(t *testing.T) {
	statuses := []int{200, 204, 400, 401, 403, 500}
	for _, status := range statuses {
		called := false
		base := DoerFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: status, Body: http.NoBody}, nil
		})
		d := ExpireOn401(func(*http.Request) { called = true })(base)

		req, _ := http.NewRequest(http.MethodGet, "http://x/y", nil)
		resp, err := d.Do(req)
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, status == http.StatusUnauthorized, called, "status %d", status)
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Doer) Doer {
			return DoerFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.Do(req)
			})
		}
	}
	base := DoerFunc(func(*http.Request) (*http.Response, error) {
		order = append(order, "base")
		return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
	})

	req, _ := http.NewRequest(http.MethodGet, "http://x", nil)
	_, err := Chain(base, mark("a"), mark("b"), mark("c")).Do(req)
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"a", "b", "c", "base"}, order); diff != "" {
		t.Errorf("chain order mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, WithRateLimit(0.001, 1))
	_, err := c.Get(context.Background(), "/x")
	require.NoError(t, err, "burst allows the first call")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Get(ctx, "/x")
	assert.Error(t, err, "second call must wait past the deadline")
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newClient(t, srv.URL, WithTimeout(20*time.Millisecond))
	_, err := c.Get(context.Background(), "/slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newClient(t, srv.URL+"/", WithUserAgent("axo-test"))
	_, err := c.Post(context.Background(), "api/pets", types.NewPet{Name: "a"})
	require.NoError(t, err)

	assert.Equal(t, "axo-test", got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, srv.URL, c.BaseURL())
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/api/pets":            "/api/pets",
		"/api/pets/42":         "/api/pets/{id}",
		"/api/pets/42/actions": "/api/pets/{id}/actions",
		"/users/me":            "/users/me",
		"/":                    "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, RouteLabel(in), in)
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "fallback", Message(nil, "fallback"))
	assert.Equal(t, "boom", Message(errors.New("boom"), "fallback"))
	assert.Equal(t, "fallback", Message(errors.New("  "), "fallback"))
	assert.Equal(t, "nope", Message(&Error{StatusCode: 400, Message: "nope"}, "fallback"))
}

func TestDecodeRequired(t *testing.T) {
	_, err := decodeRequired[types.Pet](nil)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	p, err := decodeRequired[types.Pet](json.RawMessage(`{"id":7,"name":"Axo"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)

	_, err = decode[types.Pet](json.RawMessage(`[1,2]`))
	assert.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "unexpected response shape"))
}
