package api

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode"

	"axolotl/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to Doer.
type DoerFunc func(req *http.Request) (*http.Response, error)

func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Middleware wraps a Doer with one cross-cutting concern.
type Middleware func(next Doer) Doer

// Chain wraps base so that mws[0] is the outermost stage.
func Chain(base Doer, mws ...Middleware) Doer {
	d := base
	for i := len(mws) - 1; i >= 0; i-- {
		d = mws[i](d)
	}
	return d
}

// TokenSource supplies the current bearer token; "" means no session.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

type anonymousKey struct{}

// WithAnonymous marks ctx so no Authorization header is attached.
func WithAnonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey{}, true)
}

// IsAnonymous reports whether ctx was marked by WithAnonymous.
func IsAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey{}).(bool)
	return v
}

// BearerToken attaches "Authorization: Bearer <token>" unless the request is
// anonymous or there is no token.
func BearerToken(src TokenSource) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if src != nil && !IsAnonymous(req.Context()) {
				if tok := src.Token(); tok != "" {
					req.Header.Set("Authorization", "Bearer "+tok)
				}
			}
			return next.Do(req)
		})
	}
}

// ExpireOn401 calls onExpired for every 401 response, whichever endpoint
// produced it. The response is passed on untouched, so the caller still gets
// the error after the hook has run.
func ExpireOn401(onExpired func(req *http.Request)) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.Do(req)
			if err == nil && resp.StatusCode == http.StatusUnauthorized && onExpired != nil {
				onExpired(req)
			}
			return resp, err
		})
	}
}

// RateLimit blocks until lim allows the request or the request context ends.
func RateLimit(lim *rate.Limiter) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if err := lim.Wait(req.Context()); err != nil {
				return nil, err
			}
			return next.Do(req)
		})
	}
}

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// RequestID sets X-Request-ID when the caller did not.
func RequestID() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) == "" {
				req.Header.Set(RequestIDHeader, uuid.NewString())
			}
			return next.Do(req)
		})
	}
}

// Instrument reports status and latency of each call.
func Instrument(rec metrics.Recorder) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			route := RouteLabel(req.URL.Path)
			resp, err := next.Do(req)
			if err != nil {
				rec.RecordTransportError(req.Method, route)
				return resp, err
			}
			rec.RecordRequest(req.Method, route, resp.StatusCode, time.Since(start))
			if resp.StatusCode == http.StatusUnauthorized {
				rec.RecordSessionExpired()
			}
			return resp, err
		})
	}
}

// Logging logs every call at debug level and failures at warn.
func Logging(logger *zap.Logger) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("request_id", req.Header.Get(RequestIDHeader)),
				zap.Duration("duration", time.Since(start)),
			}
			switch {
			case err != nil:
				logger.Warn("request failed", append(fields, zap.Error(err))...)
			case resp.StatusCode >= 400:
				logger.Warn("request rejected", append(fields, zap.Int("status", resp.StatusCode))...)
			default:
				logger.Debug("request completed", append(fields, zap.Int("status", resp.StatusCode))...)
			}
			return resp, err
		})
	}
}

// RouteLabel collapses numeric path segments so metric labels stay bounded:
// /api/pets/42/actions -> /api/pets/{id}/actions.
func RouteLabel(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if s != "" && strings.IndexFunc(s, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}
