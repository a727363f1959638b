package apitest

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"axolotl/internal/types"
)

// A reduced copy of the backend's action rules: enough for tests to see
// realistic rejections, XP gains and level-ups.

const (
	exhaustionThreshold = 15
	maxLevel            = 15
)

func precondition(p *types.Pet, a types.Action) string {
	if p.Stamina <= exhaustionThreshold && a != types.ActionRest {
		return "Your pet is exhausted: it must rest before doing anything else."
	}
	starving := p.Hunger >= 80
	switch a {
	case types.ActionPlay:
		switch {
		case starving:
			return "Too hungry to play. Feed it first."
		case p.Hunger > 70:
			return "Too hungry to enjoy playing."
		case p.Stamina < 20:
			return "Too tired to play. Needs rest."
		}
	case types.ActionTrain:
		switch {
		case starving:
			return "Too hungry to train. Feed it first."
		case p.Hunger > 60:
			return "Hunger is too high to train."
		case p.Stamina < 30:
			return "Not enough energy to train."
		}
	}
	return ""
}

func apply(p *types.Pet, a types.Action) types.ActionResult {
	var xp int
	var msg string
	switch a {
	case types.ActionFeed:
		p.Hunger = clamp(p.Hunger - 30)
		p.Stamina = clamp(p.Stamina + 5)
		p.Happiness = clamp(p.Happiness + 5)
		xp, msg = 5, "Fed: Hunger -30, Stamina +5, Happiness +5."
	case types.ActionPlay:
		p.Happiness = clamp(p.Happiness + 15)
		p.Stamina = clamp(p.Stamina - 20)
		p.Hunger = clamp(p.Hunger + 10)
		xp, msg = 10, "Played: Happiness +15, Stamina -20, Hunger +10."
	case types.ActionTrain:
		p.Stamina = clamp(p.Stamina - 30)
		p.Hunger = clamp(p.Hunger + 20)
		p.Happiness = clamp(p.Happiness + 5)
		xp, msg = 25, "Training: Stamina -30, Hunger +20, Happiness +5, XP +25."
	case types.ActionRest:
		p.Stamina = clamp(p.Stamina + 30)
		p.Hunger = clamp(p.Hunger + 10)
		msg = "Rested: Stamina +30, Hunger +10."
	}
	addXP(p, xp)
	out := *p
	return types.ActionResult{Pet: &out, Message: msg, XPGained: xp}
}

func addXP(p *types.Pet, delta int) {
	if p.Level >= maxLevel {
		p.XPInLevel = 0
		return
	}
	xp := p.XPInLevel + delta
	for xp >= 100 && p.Level < maxLevel {
		xp -= 100
		p.Level++
	}
	if p.Level >= maxLevel {
		p.Level, xp = maxLevel, 0
	}
	p.XPInLevel = xp
	p.Stage = stageFor(p.Level)
}

func stageFor(level int) string {
	switch {
	case level >= 10:
		return "ADULT"
	case level >= 5:
		return "TEEN"
	default:
		return "BABY"
	}
}

func clamp(v int) int {
	return max(0, min(100, v))
}

func withEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, ctxEmail{}, email)
}

func emailFrom(ctx context.Context) string {
	email, _ := ctx.Value(ctxEmail{}).(string)
	return email
}

// readAll drains r.Body and puts an identical reader back.
func readAll(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, err
}
