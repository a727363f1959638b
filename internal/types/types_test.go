package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthResponseBearerToken(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"token", `{"token":"abc"}`, "abc"},
		{"jwt", `{"jwt":"def"}`, "def"},
		{"accessToken", `{"accessToken":"ghi"}`, "ghi"},
		{"token wins", `{"token":"a","jwt":"b","accessToken":"c"}`, "a"},
		{"jwt before accessToken", `{"jwt":"b","accessToken":"c"}`, "b"},
		{"none", `{"user":"x"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res AuthResponse
			require.NoError(t, json.Unmarshal([]byte(tt.body), &res))
			assert.Equal(t, tt.want, res.BearerToken())
		})
	}
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" play ")
	require.NoError(t, err)
	assert.Equal(t, ActionPlay, a)

	_, err = ParseAction("dance")
	assert.True(t, errors.Is(err, ErrInvalidAction))
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("PINK")
	require.NoError(t, err)
	assert.Equal(t, ColorPink, c)

	_, err = ParseColor("blue")
	assert.True(t, errors.Is(err, ErrInvalidColor))
}

func TestPetUpdateValidate(t *testing.T) {
	assert.NoError(t, PetUpdate{Hunger: 0, Happiness: 100}.Validate())
	assert.Error(t, PetUpdate{Hunger: -1, Happiness: 50}.Validate())
	assert.Error(t, PetUpdate{Hunger: 50, Happiness: 101}.Validate())
}

func TestActionResultNotice(t *testing.T) {
	var nilResult *ActionResult
	assert.Equal(t, "", nilResult.Notice())
	assert.Equal(t, "Yum!", (&ActionResult{Message: "Yum!"}).Notice())
	assert.Equal(t, "+10 XP", (&ActionResult{XPGained: 10}).Notice())
	assert.Equal(t, "Played (+5 XP)", (&ActionResult{Message: "Played", XPGained: 5}).Notice())
}

func TestUserHasRole(t *testing.T) {
	u := &User{Roles: []string{"USER", "ADMIN"}}
	assert.True(t, u.HasRole("admin"))
	assert.False(t, u.HasRole("owner"))

	var none *User
	assert.False(t, none.HasRole("USER"))
}

func TestPetDecodesBackendShape(t *testing.T) {
	body := `{"id":42,"name":"Spike","color":"pink","hunger":40,"stamina":55,"happiness":70,
		"level":3,"xpInLevel":25,"stage":"BABY","ownerEmail":"a@b.com"}`
	var p Pet
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	assert.Equal(t, Pet{
		ID: 42, Name: "Spike", Color: ColorPink, Hunger: 40, Stamina: 55, Happiness: 70,
		Level: 3, XPInLevel: 25, Stage: "BABY", OwnerEmail: "a@b.com",
	}, p)
}
