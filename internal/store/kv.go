// Package store persists the client-side state that must survive a restart:
// the bearer token and the UI theme. Values are plain strings under a small
// set of well-known keys.
package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"axolotl/internal/config"

	"go.uber.org/zap"
)

// Well-known keys.
const (
	KeyToken = "token"
	KeyTheme = "theme"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// KV is a durable string key/value store.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// Open creates the backend selected by cfg.Driver under cfg.Dir.
func Open(cfg config.StorageConfig, logger *zap.Logger) (KV, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case config.DriverFile, "":
		return NewFileKV(filepath.Join(cfg.Dir, "state.json"), logger)
	case config.DriverSQLite:
		return NewSQLiteKV(filepath.Join(cfg.Dir, "state.db"), logger)
	case config.DriverMemory:
		return NewMemoryKV(), nil
	}
	return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
}

// GetOr returns the stored value or def when the key is absent.
func GetOr(kv KV, key, def string) (string, error) {
	v, err := kv.Get(key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	return v, err
}
