package ui

import (
	"strings"
	"testing"

	"axolotl/internal/prefs"

	"github.com/stretchr/testify/assert"
)

func TestPaletteFor(t *testing.T) {
	for _, th := range prefs.Themes {
		assert.Equal(t, th, PaletteFor(th).Name)
	}
	assert.Equal(t, prefs.ThemeNight, PaletteFor("bogus").Name)
	assert.False(t, PaletteFor(prefs.ThemeDay).IsDark)
}

func TestNewStyles(t *testing.T) {
	s := NewStyles(prefs.ThemeTropical)
	assert.Equal(t, prefs.ThemeTropical, s.Palette.Name)
	if !strings.Contains(s.Title.Render("hello"), "hello") {
		t.Fatalf("title should render its text")
	}
}

func TestMeter(t *testing.T) {
	s := NewStyles(prefs.ThemeNight)
	tests := []struct {
		value, filled int
	}{
		{0, 0}, {50, 5}, {100, 10}, {150, 10}, {-5, 0},
	}
	for _, tt := range tests {
		out := s.Meter(tt.value, 10)
		assert.Equal(t, tt.filled, strings.Count(out, "█"), "value %d", tt.value)
		assert.Equal(t, 10-tt.filled, strings.Count(out, "░"), "value %d", tt.value)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Spike", "Spike"},
		{"<b>Spike</b>", "Spike"},
		{`<script>alert(1)</script>Nemo`, "Nemo"},
		{"Tom & Jerry", "Tom & Jerry"},
		{"bell\x07 and \x1b[31mred", "bell and [31mred"},
		{"two\nlines", "two\nlines"},
		{"csi\u009b2Jclear\u0085", "csi2Jclear"},
		{"Äxolotl ñ", "Äxolotl ñ"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "input %q", tt.in)
	}
}

func TestMarkdown(t *testing.T) {
	out := Markdown(LandingText, NightPalette(), 60)
	assert.Contains(t, out, "Axolotl Sanctuary")
	assert.NotContains(t, out, "# Axolotl")
}
