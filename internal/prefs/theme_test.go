package prefs

import (
	"errors"
	"testing"

	"axolotl/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTheme_DefaultIsNight(t *testing.T) {
	p := New(store.NewMemoryKV())
	assert.Equal(t, ThemeNight, p.Theme())
}

func TestTheme_Persists(t *testing.T) {
	kv := store.NewMemoryKV()
	p := New(kv)
	require.NoError(t, p.SetTheme(ThemeTropical))
	assert.Equal(t, ThemeTropical, New(kv).Theme())

	v, err := kv.Get(store.KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "tropical", v)
}

func TestTheme_GarbageReadsAsDefault(t *testing.T) {
	kv := store.NewMemoryKV()
	require.NoError(t, kv.Set(store.KeyTheme, "neon"))
	assert.Equal(t, DefaultTheme, New(kv).Theme())
}

func TestSetTheme_Rejects(t *testing.T) {
	err := New(store.NewMemoryKV()).SetTheme("neon")
	assert.True(t, errors.Is(err, ErrInvalidTheme))
}

func TestParseTheme(t *testing.T) {
	th, err := ParseTheme(" Day ")
	require.NoError(t, err)
	assert.Equal(t, ThemeDay, th)
}

func TestNext(t *testing.T) {
	assert.Equal(t, ThemeTropical, ThemeDay.Next())
	assert.Equal(t, ThemeNight, ThemeTropical.Next())
	assert.Equal(t, ThemeDay, ThemeNight.Next())
	assert.Equal(t, DefaultTheme, Theme("x").Next())
}
