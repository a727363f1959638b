// Package prefs stores UI preferences next to the session token.
package prefs

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"axolotl/internal/store"
)

// Theme is a UI color scheme.
type Theme string

const (
	ThemeDay      Theme = "day"
	ThemeTropical Theme = "tropical"
	ThemeNight    Theme = "night"
)

// DefaultTheme is used until the user picks one.
const DefaultTheme = ThemeNight

// Themes lists every theme in switcher order.
var Themes = []Theme{ThemeDay, ThemeTropical, ThemeNight}

// ErrInvalidTheme is returned by ParseTheme for unknown names.
var ErrInvalidTheme = errors.New("invalid theme")

// ParseTheme accepts a theme name in any case.
func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Themes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of day, tropical, night)", ErrInvalidTheme, s)
}

// Next returns the theme after t in switcher order, wrapping around.
func (t Theme) Next() Theme {
	for i, known := range Themes {
		if known == t {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return DefaultTheme
}

// Preferences reads and writes preferences through a KV.
type Preferences struct {
	mu sync.Mutex
	kv store.KV
}

// New creates Preferences over kv.
func New(kv store.KV) *Preferences {
	return &Preferences{kv: kv}
}

// Theme returns the saved theme. Missing or unrecognized values read as
// DefaultTheme.
func (p *Preferences) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, err := store.GetOr(p.kv, store.KeyTheme, string(DefaultTheme))
	if err != nil {
		return DefaultTheme
	}
	t, err := ParseTheme(v)
	if err != nil {
		return DefaultTheme
	}
	return t
}

// SetTheme saves t.
func (p *Preferences) SetTheme(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.kv.Set(store.KeyTheme, string(t)); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}
