// Package app constructs every long-lived client component from config and
// owns their start/stop lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"axolotl/internal/api"
	"axolotl/internal/config"
	"axolotl/internal/logging"
	"axolotl/internal/metrics"
	"axolotl/internal/petdetail"
	"axolotl/internal/poll"
	"axolotl/internal/prefs"
	"axolotl/internal/router"
	"axolotl/internal/session"
	"axolotl/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Options overrides parts of the wiring, mostly for tests.
type Options struct {
	Logger     *logging.Logger // default: built from cfg.Logging
	KV         store.KV        // default: store.Open(cfg.Storage)
	HTTPClient api.Doer        // default: *http.Client
	Ticker     poll.TickerFactory
	// WatchToken follows the token file for changes made by other processes.
	WatchToken bool
}

// App is the explicitly constructed client. Open it, Start it, Close it.
type App struct {
	Config   *config.Config
	Logs     *logging.Logger
	KV       store.KV
	Session  *session.Store
	Client   *api.Client
	Prefs    *prefs.Preferences
	Routes   *router.Table
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	opts       Options
	watcher    *session.Watcher
	metricsSrv *metrics.Server

	navMu    sync.Mutex
	navigate func(target string)

	bgCancel context.CancelFunc
	bg       sync.WaitGroup

	closeOnce sync.Once
}

// Open wires all components. Nothing runs in the background until Start.
func Open(cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logs := opts.Logger
	if logs == nil {
		var err error
		logs, err = logging.New(cfg.Logging, cfg.Storage.Dir)
		if err != nil {
			return nil, err
		}
	}
	boot := logs.Get(logging.CategoryBoot)

	kv := opts.KV
	if kv == nil {
		var err error
		kv, err = store.Open(cfg.Storage, logs.Get(logging.CategoryStorage))
		if err != nil {
			return nil, fmt.Errorf("failed to open state: %w", err)
		}
	}

	a := &App{
		Config:   cfg,
		Logs:     logs,
		KV:       kv,
		Prefs:    prefs.New(kv),
		Routes:   router.New(),
		Registry: prometheus.NewRegistry(),
		opts:     opts,
	}
	a.Metrics = metrics.NewCollector(a.Registry)

	sess, err := session.New(kv, session.WithLogger(logs.Get(logging.CategorySession)))
	if err != nil {
		kv.Close()
		return nil, err
	}
	a.Session = sess

	clientOpts := []api.Option{
		api.WithTokenSource(sess),
		api.WithExpiryHook(a.onExpired),
		api.WithLogger(logs.Get(logging.CategoryAPI)),
		api.WithRecorder(a.Metrics),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
		api.WithTimeout(cfg.GetAPITimeout()),
		api.WithUserAgent(cfg.API.UserAgent),
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(opts.HTTPClient))
	}
	client, err := api.New(cfg.API.BaseURL, clientOpts...)
	if err != nil {
		kv.Close()
		return nil, err
	}
	a.Client = client
	sess.SetProfileFetcher(client)

	boot.Info("client wired",
		zap.String("api", client.BaseURL()),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("authenticated", sess.IsAuthenticated()))
	return a, nil
}

// Start runs the optional background parts: the token file watcher and the
// metrics listener. It also loads the profile when a token was restored.
func (a *App) Start(ctx context.Context) error {
	boot := a.Logs.Get(logging.CategoryBoot)

	if a.opts.WatchToken {
		if fkv, ok := a.KV.(*store.FileKV); ok {
			w, err := session.NewWatcher(a.Session, fkv.Path(), a.Logs.Get(logging.CategorySession))
			if err != nil {
				return fmt.Errorf("failed to create token watcher: %w", err)
			}
			if err := w.Start(ctx); err != nil {
				w.Stop()
				boot.Warn("token watcher disabled", zap.Error(err))
			} else {
				a.watcher = w
			}
		}
	}

	if addr := a.Config.Metrics.Addr; addr != "" {
		srv, err := metrics.Listen(addr, a.Registry, a.Logs.Get(logging.CategoryMetrics))
		if err != nil {
			return fmt.Errorf("failed to start metrics listener: %w", err)
		}
		a.metricsSrv = srv
	}

	if a.Session.IsAuthenticated() {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancel = cancel
		a.bg.Add(1)
		go func() {
			defer a.bg.Done()
			_ = a.Session.RefreshUser(bgCtx)
		}()
	}
	return nil
}

// Close stops background work and releases storage. Safe to call twice.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		// Background loads may still expire the session, which writes to KV.
		if a.bgCancel != nil {
			a.bgCancel()
		}
		a.bg.Wait()
		if a.watcher != nil {
			a.watcher.Stop()
		}
		if a.metricsSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := a.metricsSrv.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
			cancel()
		}
		if err := a.KV.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := a.Logs.Sync(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// OnNavigate sets where forced navigations (session expiry) go. The
// interactive UI installs itself here; CLI commands leave it unset.
func (a *App) OnNavigate(fn func(target string)) {
	a.navMu.Lock()
	defer a.navMu.Unlock()
	a.navigate = fn
}

// onExpired runs for every 401: clear the session, then send the user to
// the login screen. The caller still receives the error afterwards.
func (a *App) onExpired(req *http.Request) {
	a.Logs.Get(logging.CategorySession).Info("server rejected token",
		zap.String("method", req.Method), zap.String("path", req.URL.Path))
	a.Session.Expire()

	a.navMu.Lock()
	nav := a.navigate
	a.navMu.Unlock()
	if nav != nil {
		nav(router.PathLoginExpired)
	}
}

// NewPetDetail creates a presenter for pet id using the configured poll
// interval.
func (a *App) NewPetDetail(id int64) *petdetail.Presenter {
	opts := []poll.Option{
		poll.WithInterval(a.Config.GetPollInterval()),
		poll.WithRecorder(a.Metrics),
	}
	if a.opts.Ticker != nil {
		opts = append(opts, poll.WithTicker(a.opts.Ticker))
	}
	return petdetail.New(a.Client, id, a.Logs.Get(logging.CategoryPoll), opts...)
}
