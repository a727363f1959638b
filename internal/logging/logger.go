// Package logging provides config-driven categorized logging for axo.
// Logs are written to <state dir>/logs/ as structured zap output; the
// interactive UI owns the terminal, so nothing is written to stdout.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"axolotl/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup, config, wiring
	CategoryAPI     Category = "api"     // Outbound HTTP calls
	CategorySession Category = "session" // Token and profile lifecycle
	CategoryPoll    Category = "poll"    // Pet detail refresh loop
	CategoryUI      Category = "ui"      // Views and navigation
	CategoryStorage Category = "storage" // Durable key/value store
	CategoryMetrics Category = "metrics" // Metrics listener
)

// AllCategories lists every category in declaration order.
var AllCategories = []Category{
	CategoryBoot, CategoryAPI, CategorySession, CategoryPoll,
	CategoryUI, CategoryStorage, CategoryMetrics,
}

// Logger hands out one named zap logger per category.
type Logger struct {
	root *zap.Logger
	cfg  config.LoggingConfig
	path string

	mu    sync.Mutex
	byCat map[Category]*zap.Logger
}

// New builds a Logger from config. Output goes to stateDir/logs/<file>, or to
// stderr when File is "-".
func New(cfg config.LoggingConfig, stateDir string) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Sampling = nil
	if cfg.Format == "console" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var path string
	switch {
	case cfg.File == "-":
		path = "stderr"
	case cfg.File == "":
		path = filepath.Join(stateDir, "logs", "axo.log")
	case filepath.IsAbs(cfg.File):
		path = cfg.File
	default:
		path = filepath.Join(stateDir, "logs", cfg.File)
	}
	if path != "stderr" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create logs directory: %w", err)
		}
	}
	zc.OutputPaths = []string{path}
	zc.ErrorOutputPaths = []string{path}

	root, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &Logger{
		root:  root,
		cfg:   cfg,
		path:  path,
		byCat: make(map[Category]*zap.Logger),
	}, nil
}

// Wrap adopts an existing zap logger; every category is enabled.
func Wrap(root *zap.Logger) *Logger {
	return &Logger{root: root, byCat: make(map[Category]*zap.Logger)}
}

// NewNop returns a Logger that discards everything.
func NewNop() *Logger {
	return Wrap(zap.NewNop())
}

// Get returns the logger for a category. Disabled categories get a no-op logger.
func (l *Logger) Get(cat Category) *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lg, ok := l.byCat[cat]; ok {
		return lg
	}

	lg := zap.NewNop()
	if l.cfg.IsCategoryEnabled(string(cat)) {
		lg = l.root.Named(string(cat))
	}
	l.byCat[cat] = lg
	return lg
}

// Root returns the uncategorized logger.
func (l *Logger) Root() *zap.Logger {
	return l.root
}

// Path returns where logs are written ("stderr" or a file path).
func (l *Logger) Path() string {
	return l.path
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *Logger) Sync() error {
	if l.path == "stderr" || l.path == "" {
		_ = l.root.Sync()
		return nil
	}
	return l.root.Sync()
}
