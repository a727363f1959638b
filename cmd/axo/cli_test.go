package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"axolotl/cmd/axo/views"
	"axolotl/internal/api"
	"axolotl/internal/apitest"
	"axolotl/internal/config"
	"axolotl/internal/session"
	"axolotl/internal/types"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useBackend writes a config pointing at a fresh stub and resets every flag
// global so tests do not see each other's values.
func useBackend(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.New(t)

	for _, k := range []string{"AXO_API_URL", "AXO_STATE_DIR", "AXO_STORAGE_DRIVER", "AXO_POLL_INTERVAL", "AXO_METRICS_ADDR"} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.Storage.Dir = dir
	cfg.Poll.Interval = "20ms"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(path))

	cfgPath, verbose, apiURL = path, false, ""
	authEmail, authPassword, authUsername = "", "", ""
	petsJSON, petsDetails, petColor = false, false, ""
	petHunger, petHappiness, watchCount = 0, 0, 0
	profileUsername, profileBio, profileAvatar = "", "", ""
	t.Cleanup(func() { cfgPath = "" })
	return srv
}

func newCmd(stdin string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	return cmd, &out
}

func login(t *testing.T, srv *apitest.Server) {
	t.Helper()
	srv.AddUser("alex@example.com", "hunter22", "alex")
	authEmail, authPassword = "alex@example.com", "hunter22"
	cmd, _ := newCmd("")
	require.NoError(t, runLogin(cmd, nil))
	authEmail, authPassword = "", ""
}

func TestLogin_StoresTokenForLaterCommands(t *testing.T) {
	srv := useBackend(t)
	srv.AddUser("alex@example.com", "hunter22", "alex")

	authEmail = "alex@example.com"
	cmd, out := newCmd("hunter22\n")
	require.NoError(t, runLogin(cmd, nil))
	assert.Contains(t, out.String(), "Signed in as alex <alex@example.com>")

	cmd, out = newCmd("")
	require.NoError(t, runWhoami(cmd, nil))
	assert.Contains(t, out.String(), "alex <alex@example.com>")
	assert.Contains(t, out.String(), "token:   opaque")
}

func TestLogin_Validation(t *testing.T) {
	useBackend(t)

	cmd, _ := newCmd("")
	err := runLogin(cmd, nil)
	require.Error(t, err)
	assert.Equal(t, views.MsgFillAllFields, err.Error())
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := useBackend(t)
	srv.AddUser("alex@example.com", "hunter22", "alex")

	authEmail, authPassword = "alex@example.com", "nope"
	cmd, _ := newCmd("")
	err := runLogin(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestRegister(t *testing.T) {
	t.Run("without token asks to sign in", func(t *testing.T) {
		useBackend(t)
		authEmail, authPassword, authUsername = "new@example.com", "secret", "newbie"
		cmd, out := newCmd("")
		require.NoError(t, runRegister(cmd, nil))
		assert.Contains(t, out.String(), "Please sign in")

		cmd, _ = newCmd("")
		assert.ErrorIs(t, runWhoami(cmd, nil), errNotSignedIn)
	})

	t.Run("with token signs in", func(t *testing.T) {
		srv := useBackend(t)
		srv.RegisterIssuesToken = true
		authEmail, authPassword, authUsername = "new@example.com", "secret", "newbie"
		cmd, out := newCmd("")
		require.NoError(t, runRegister(cmd, nil))
		assert.Contains(t, out.String(), "Signed in as")
	})

	t.Run("short password", func(t *testing.T) {
		useBackend(t)
		authEmail, authPassword, authUsername = "new@example.com", "abc", "newbie"
		cmd, _ := newCmd("")
		err := runRegister(cmd, nil)
		require.Error(t, err)
		assert.Equal(t, views.MsgPasswordTooShort, err.Error())
	})

	t.Run("short password counts characters", func(t *testing.T) {
		srv := useBackend(t)
		authEmail, authPassword, authUsername = "new@example.com", "äää", "newbie"
		cmd, _ := newCmd("")
		err := runRegister(cmd, nil)
		require.Error(t, err)
		assert.Equal(t, views.MsgPasswordTooShort, err.Error())
		assert.Empty(t, srv.Requests())
	})
}

func TestLogout(t *testing.T) {
	srv := useBackend(t)
	login(t, srv)

	cmd, out := newCmd("")
	require.NoError(t, runLogout(cmd, nil))
	assert.Equal(t, "Signed out.\n", out.String())

	cmd, out = newCmd("")
	require.NoError(t, runLogout(cmd, nil))
	assert.Equal(t, "Not signed in.\n", out.String())
}

func TestPets_CreateListAct(t *testing.T) {
	srv := useBackend(t)
	login(t, srv)

	petColor = "Pink"
	cmd, out := newCmd("")
	require.NoError(t, runPetsCreate(cmd, []string{"Spike"}))
	assert.Contains(t, out.String(), "Nice to meet you, Spike!")

	cmd, out = newCmd("")
	require.NoError(t, runPetsList(cmd, nil))
	assert.Contains(t, out.String(), "#1 Spike")
	assert.Contains(t, out.String(), "pink")

	cmd, out = newCmd("")
	require.NoError(t, runPetsAct(cmd, []string{"1", "feed"}))
	assert.Contains(t, out.String(), "Fed:")
	assert.Contains(t, out.String(), "(+5 XP)")
	assert.Equal(t, 1, srv.Count("POST", "/api/pets/1/actions"))
}

func TestPets_ListDetailsJSON(t *testing.T) {
	srv := useBackend(t)
	login(t, srv)
	for _, name := range []string{"Ana", "Bo", "Cy"} {
		srv.AddPet(types.Pet{Name: name, Color: types.ColorWhite, Hunger: 10, Stamina: 90, OwnerEmail: "alex@example.com"})
	}

	petsDetails, petsJSON = true, true
	cmd, out := newCmd("")
	require.NoError(t, runPetsList(cmd, nil))

	var pets []types.Pet
	require.NoError(t, json.Unmarshal(out.Bytes(), &pets))
	require.Len(t, pets, 3)
	assert.Equal(t, []string{"Ana", "Bo", "Cy"}, []string{pets[0].Name, pets[1].Name, pets[2].Name})
	for _, p := range pets {
		assert.Equal(t, 1, srv.Count("GET", fmt.Sprintf("/api/pets/%d", p.ID)))
	}
}

func TestPets_Empty(t *testing.T) {
	srv := useBackend(t)
	login(t, srv)

	cmd, out := newCmd("")
	require.NoError(t, runPetsList(cmd, nil))
	assert.Contains(t, out.String(), "No axolotls yet")
}

func TestPets_RejectedAction(t *testing.T) {
	srv := useBackend(t)
	login(t, srv)
	p := srv.AddPet(types.Pet{Name: "Tired", Color: types.ColorPink, Stamina: 10, OwnerEmail: "alex@example.com"})

	cmd, _ := newCmd("")
	err := runPetsAct(cmd, []string{"1", "play"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")

	after, ok := srv.Pet(p.ID)
	require.True(t, ok)
	assert.Equal(t, 10, after.Stamina)
}

func TestPets_ArgumentErrors(t *testing.T) {
	useBackend(t)
	cmd, _ := newCmd("")

	assert.ErrorContains(t, runPetsShow(cmd, []string{"abc"}), "invalid pet id")
	assert.ErrorContains(t, runPetsAct(cmd, []string{"1", "dance"}), "invalid action")
	petColor = "green"
	assert.ErrorIs(t, runPetsCreate(cmd, []string{"Spike"}), types.ErrInvalidColor)
	petHunger = 101
	assert.ErrorContains(t, runPetsUpdate(cmd, []string{"1"}), "hunger must be between 0 and 100")
}

func TestPets_UpdateAndDelete(t *testing.T) {
	srv := useBackend(t)
	login(t, srv)
	p := srv.AddPet(types.Pet{Name: "Spike", Color: types.ColorPink, Hunger: 50, Happiness: 50, OwnerEmail: "alex@example.com"})

	petHunger, petHappiness = 0, 100
	cmd, out := newCmd("")
	require.NoError(t, runPetsUpdate(cmd, []string{"1"}))
	assert.Contains(t, out.String(), "happiness 100")

	cmd, out = newCmd("")
	require.NoError(t, runPetsDelete(cmd, []string{"1"}))
	assert.Equal(t, "Released #1.\n", out.String())
	_, ok := srv.Pet(p.ID)
	assert.False(t, ok)
}

func TestPets_RequiresSession(t *testing.T) {
	srv := useBackend(t)
	cmd, _ := newCmd("")
	assert.ErrorIs(t, runPetsList(cmd, nil), errNotSignedIn)
	assert.Empty(t, srv.Requests())
}

func TestPets_ExpiredTokenClearsSession(t *testing.T) {
	srv := useBackend(t)
	login(t, srv)
	srv.RevokeAll()

	cmd, _ := newCmd("")
	err := runPetsList(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run `axo login`")

	cmd, _ = newCmd("")
	assert.ErrorIs(t, runWhoami(cmd, nil), errNotSignedIn)
}

func TestPets_Watch(t *testing.T) {
	srv := useBackend(t)
	login(t, srv)
	srv.AddPet(types.Pet{Name: "Spike", Color: types.ColorPink, Hunger: 20, Stamina: 80, OwnerEmail: "alex@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watchCount = 2
	cmd, out := newCmd("")
	cmd.SetContext(ctx)
	require.NoError(t, runPetsWatch(cmd, []string{"1"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Spike")
	assert.Contains(t, lines[0], "hunger 20")
	assert.GreaterOrEqual(t, srv.Count("GET", "/api/pets/1"), 1)
}

func TestProfile(t *testing.T) {
	srv := useBackend(t)
	login(t, srv)

	cmd, out := newCmd("")
	require.NoError(t, runProfileShow(cmd, nil))
	assert.Contains(t, out.String(), "username: alex")

	cmd, out = newCmd("")
	cmd.Flags().StringVar(&profileBio, "bio", "", "")
	cmd.Flags().StringVar(&profileUsername, "username", "", "")
	cmd.Flags().StringVar(&profileAvatar, "avatar", "", "")
	require.NoError(t, cmd.Flags().Set("bio", "likes worms"))
	require.NoError(t, runProfileUpdate(cmd, nil))
	assert.Contains(t, out.String(), "Profile updated.")
	assert.Contains(t, out.String(), "bio:      likes worms")
	assert.Contains(t, out.String(), "username: alex")

	cmd, _ = newCmd("")
	assert.ErrorContains(t, runProfileUpdate(cmd, nil), "nothing to update")
}

func TestTheme(t *testing.T) {
	useBackend(t)

	cmd, out := newCmd("")
	require.NoError(t, runTheme(cmd, nil))
	assert.Equal(t, "night\n", out.String())

	cmd, out = newCmd("")
	require.NoError(t, runTheme(cmd, []string{"next"}))
	assert.Equal(t, "theme: day\n", out.String())

	cmd, out = newCmd("")
	require.NoError(t, runTheme(cmd, []string{"Tropical"}))
	assert.Equal(t, "theme: tropical\n", out.String())

	cmd, out = newCmd("")
	require.NoError(t, runTheme(cmd, nil))
	assert.Equal(t, "tropical\n", out.String())

	cmd, _ = newCmd("")
	assert.Error(t, runTheme(cmd, []string{"pastel"}))
}

func TestExplain(t *testing.T) {
	assert.NoError(t, explain(nil))
	assert.Same(t, errNotSignedIn, explain(errNotSignedIn))

	err := explain(&api.Error{StatusCode: 400, Message: "Too hungry to play. Feed it first."})
	assert.EqualError(t, err, "Too hungry to play. Feed it first.")

	err = explain(&api.Error{StatusCode: 401, Message: "Unauthorized"})
	assert.EqualError(t, err, "Unauthorized (session cleared, run `axo login`)")

	plain := errors.New("dial tcp: refused")
	assert.Same(t, plain, explain(plain))
}

func TestPrintClaims(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var out bytes.Buffer
	printClaims(&out, session.Claims{Subject: "alex@example.com", ExpiresAt: now.Add(90 * time.Minute)}, now)
	assert.Contains(t, out.String(), "subject: alex@example.com")
	assert.Contains(t, out.String(), "(in 1h30m0s)")

	out.Reset()
	printClaims(&out, session.Claims{ExpiresAt: now.Add(-time.Minute)}, now)
	assert.Contains(t, out.String(), "(expired)")
}
