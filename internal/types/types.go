// Package types provides the wire types shared by the API client, the session
// store and the views. The backend owns every record; these are read-only
// snapshots plus the request payloads the client sends.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// USERS
// =============================================================================

// User is the cached profile returned by GET /users/me.
type User struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	Email     string   `json:"email"`
	AvatarURL string   `json:"avatarUrl,omitempty"`
	Bio       string   `json:"bio,omitempty"`
	Roles     []string `json:"roles,omitempty"`
}

// HasRole reports whether the profile carries the given role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// ProfileUpdate is the body of PUT /users/me.
type ProfileUpdate struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatarUrl"`
}

// =============================================================================
// AUTH
// =============================================================================

// Credentials is the body of POST /auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// AuthResponse covers the token field names the backend has used.
type AuthResponse struct {
	Token       string `json:"token,omitempty"`
	JWT         string `json:"jwt,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

// BearerToken returns the first non-empty of token, jwt, accessToken.
func (r AuthResponse) BearerToken() string {
	switch {
	case r.Token != "":
		return r.Token
	case r.JWT != "":
		return r.JWT
	default:
		return r.AccessToken
	}
}

// =============================================================================
// PETS
// =============================================================================

// Pet is a snapshot of a pet as reported by the backend.
type Pet struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Color      Color  `json:"color"`
	Hunger     int    `json:"hunger"`
	Stamina    int    `json:"stamina"`
	Happiness  int    `json:"happiness"`
	Level      int    `json:"level"`
	XPInLevel  int    `json:"xpInLevel"`
	Stage      string `json:"stage"`
	OwnerEmail string `json:"ownerEmail"`
	ImageURL   string `json:"imageUrl,omitempty"`
}

// NewPet is the body of POST /api/pets.
type NewPet struct {
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

// PetUpdate is the body of PUT /api/pets/:id.
type PetUpdate struct {
	Hunger    int `json:"hunger"`
	Happiness int `json:"happiness"`
}

// Validate checks the 0..100 bounds the backend enforces.
func (u PetUpdate) Validate() error {
	if u.Hunger < 0 || u.Hunger > 100 {
		return fmt.Errorf("hunger must be between 0 and 100, got %d", u.Hunger)
	}
	if u.Happiness < 0 || u.Happiness > 100 {
		return fmt.Errorf("happiness must be between 0 and 100, got %d", u.Happiness)
	}
	return nil
}

// ActionRequest is the body of POST /api/pets/:id/actions.
type ActionRequest struct {
	Action Action `json:"action"`
}

// ActionResult is what the backend may answer to an action. Every field is
// optional; the client re-reads the pet anyway.
type ActionResult struct {
	Pet      *Pet   `json:"pet,omitempty"`
	Message  string `json:"message,omitempty"`
	XPGained int    `json:"xpGained,omitempty"`
}

// Notice renders the result as a one-line summary, or "" when there is nothing to say.
func (r *ActionResult) Notice() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Message != "" && r.XPGained > 0:
		return fmt.Sprintf("%s (+%d XP)", r.Message, r.XPGained)
	case r.Message != "":
		return r.Message
	case r.XPGained > 0:
		return fmt.Sprintf("+%d XP", r.XPGained)
	}
	return ""
}

// =============================================================================
// ENUMS
// =============================================================================

// Action is a request to mutate a pet's server-side stats.
type Action string

const (
	ActionFeed  Action = "FEED"
	ActionPlay  Action = "PLAY"
	ActionTrain Action = "TRAIN"
	ActionRest  Action = "REST"
)

// Actions lists every action in display order.
var Actions = []Action{ActionFeed, ActionPlay, ActionTrain, ActionRest}

// ErrInvalidAction is returned by ParseAction for unknown names.
var ErrInvalidAction = errors.New("invalid action")

// ParseAction accepts an action name in any case.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Actions {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of FEED, PLAY, TRAIN, REST)", ErrInvalidAction, s)
}

// Label is the human verb shown on buttons.
func (a Action) Label() string {
	switch a {
	case ActionFeed:
		return "Feed"
	case ActionPlay:
		return "Play"
	case ActionTrain:
		return "Train"
	case ActionRest:
		return "Rest"
	}
	return string(a)
}

// Color is one of the four axolotl colors the backend accepts.
type Color string

const (
	ColorPink   Color = "pink"
	ColorBlack  Color = "black"
	ColorWhite  Color = "white"
	ColorOrange Color = "orange"
)

// Colors lists every color in the order the create form offers them.
var Colors = []Color{ColorPink, ColorBlack, ColorWhite, ColorOrange}

// ErrInvalidColor is returned by ParseColor for unknown names.
var ErrInvalidColor = errors.New("invalid color")

// ParseColor accepts a color name in any case.
func ParseColor(s string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Colors {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of pink, black, white, orange)", ErrInvalidColor, s)
}
