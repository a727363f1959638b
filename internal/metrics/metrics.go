// Package metrics collects client-side Prometheus metrics: outbound API calls,
// session expiries and poll outcomes. They can be exposed on an optional
// /metrics listener while the interactive client runs.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Recorder is what the API client and the poller report to.
type Recorder interface {
	RecordRequest(method, route string, status int, d time.Duration)
	RecordTransportError(method, route string)
	RecordSessionExpired()
	RecordPoll(ok bool)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	requests        *prometheus.CounterVec
	latency         *prometheus.HistogramVec
	transportErrors *prometheus.CounterVec
	expired         prometheus.Counter
	polls           *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "axo_api_requests_total",
			Help: "API responses received, by method, route and status code",
		}, []string{"method", "route", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "axo_api_request_duration_seconds",
			Help:    "API round-trip latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		transportErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "axo_api_transport_errors_total",
			Help: "API calls that failed before a response was received",
		}, []string{"method", "route"}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "axo_session_expired_total",
			Help: "Sessions cleared because the API answered 401",
		}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "axo_poll_fetches_total",
			Help: "Pet detail refreshes, by outcome",
		}, []string{"outcome"}),
	}

	reg.MustRegister(c.requests, c.latency, c.transportErrors, c.expired, c.polls)
	return c
}

// RecordRequest records one completed API call.
func (c *Collector) RecordRequest(method, route string, status int, d time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordTransportError records a call that got no response.
func (c *Collector) RecordTransportError(method, route string) {
	c.transportErrors.WithLabelValues(method, route).Inc()
}

// RecordSessionExpired records a 401-triggered logout.
func (c *Collector) RecordSessionExpired() {
	c.expired.Inc()
}

// RecordPoll records a refresh outcome.
func (c *Collector) RecordPoll(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	c.polls.WithLabelValues(outcome).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRequest(string, string, int, time.Duration) {}
func (Nop) RecordTransportError(string, string)              {}
func (Nop) RecordSessionExpired()                            {}
func (Nop) RecordPoll(bool)                                  {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Server is the optional /metrics listener.
type Server struct {
	srv    *http.Server
	ln     net.Listener
	logger *zap.Logger
	done   chan struct{}
}

// Listen binds addr and serves gatherer until Shutdown.
func Listen(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := &Server{
		srv: &http.Server{
			Handler:           Handler(gatherer),
			ReadHeaderTimeout: 5 * time.Second,
		},
		ln:     ln,
		logger: logger,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener stopped", zap.Error(err))
		}
	}()

	logger.Info("metrics listener started", zap.String("addr", ln.Addr().String()))
	return s, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Shutdown stops the listener and waits for the serve loop to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.srv.Shutdown(ctx)
	<-s.done
	return err
}
