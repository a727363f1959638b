package ui

import (
	"html"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// Sanitize strips markup and control characters from server-provided text
// (names, bios, messages) before it reaches the terminal.
func Sanitize(s string) string {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	clean := html.UnescapeString(policy.Sanitize(s))
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		// C0, DEL and C1; U+009B is a single-byte CSI on some terminals.
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r <= 0x9f) {
			return -1
		}
		return r
	}, clean)
}

// Markdown renders md for the terminal. Rendering failures fall back to the
// raw text.
func Markdown(md string, p Palette, width int) string {
	if width <= 0 || width > 100 {
		width = 80
	}
	style := "dark"
	if !p.IsDark {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// LandingText is the welcome copy shown before sign-in.
const LandingText = `# Axolotl Sanctuary

Adopt a little axolotl and keep it happy.

* **Feed** it when it gets hungry
* **Play** with it to raise happiness
* **Train** it to earn XP and level up
* Let it **rest** to recover stamina

Your axolotl grows from *baby* to *teen* to *adult* as it levels.
`

// HelpText lists the interactive keys.
const HelpText = `## Keys

| Key | Where | Does |
|---|---|---|
| tab / shift+tab | forms | move between fields |
| enter | forms, lists | submit or open |
| esc | anywhere | back to the main menu |
| f p t r | pet | feed, play, train, rest |
| ctrl+c | anywhere | quit |
`
