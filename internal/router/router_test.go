package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch(t *testing.T) {
	table := New()

	tests := []struct {
		target string
		name   Name
		params map[string]string
	}{
		{"/", Landing, map[string]string{}},
		{"/login", Login, map[string]string{}},
		{"/login?reason=expired", Login, map[string]string{}},
		{"/register", Register, map[string]string{}},
		{"/app", Home, map[string]string{}},
		{"/app/", Home, map[string]string{}},
		{"/app/profile", Profile, map[string]string{}},
		{"/app/pets/new", PetNew, map[string]string{}},
		{"/app/sanctuary", Sanctuary, map[string]string{}},
		{"/app/pets/42", PetDetail, map[string]string{"id": "42"}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			m, err := table.Match(tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.name, m.Route.Name)
			assert.Equal(t, tt.params, m.Params)
		})
	}
}

func TestMatch_Unknown(t *testing.T) {
	table := New()
	for _, target := range []string{"/nope", "/app/pets/abc", "/app/pets/42/extra", "/APP"} {
		_, err := table.Match(target)
		assert.True(t, errors.Is(err, ErrUnknownRoute), "%s: %v", target, err)
	}
}

func TestMatch_PetID(t *testing.T) {
	table := New()
	m, err := table.Match(PetPath(42))
	require.NoError(t, err)
	id, err := m.PetID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	m, err = table.Match(PathSanctuary)
	require.NoError(t, err)
	_, err = m.PetID()
	assert.Error(t, err)
}

func TestResolve_Guard(t *testing.T) {
	table := New()

	tests := []struct {
		target string
		authed bool
		want   Name
	}{
		{"/app", false, Login},
		{"/app/pets/7", false, Login},
		{"/app/sanctuary", false, Login},
		{"/app", true, Home},
		{"/app/pets/7", true, PetDetail},
		{"/login", true, Login},
		{"/", false, Landing},
		{"/missing", true, Landing},
		{"/missing", false, Landing},
	}
	for _, tt := range tests {
		m := table.Resolve(tt.target, tt.authed)
		assert.Equal(t, tt.want, m.Route.Name, "%s authed=%v", tt.target, tt.authed)
	}

	m := table.Resolve("/app/profile", false)
	assert.Equal(t, PathLogin, m.URL(), "the original target is not carried to login")
}

func TestResolve_KeepsReason(t *testing.T) {
	table := New()

	m := table.Resolve(PathLoginExpired, false)
	assert.Equal(t, Login, m.Route.Name)
	assert.Equal(t, ReasonExpired, m.Reason())
	assert.Equal(t, PathLoginExpired, m.URL())

	m = table.Resolve(PathLoginRegistered, false)
	assert.Equal(t, ReasonRegistered, m.Reason())
}

func TestAllowed(t *testing.T) {
	table := New()
	assert.True(t, table.Allowed("/", false))
	assert.False(t, table.Allowed("/app", false))
	assert.True(t, table.Allowed("/app", true))
	assert.False(t, table.Allowed("/missing", true))
}

func TestRoute(t *testing.T) {
	table := New()
	r, ok := table.Route(PetDetail)
	require.True(t, ok)
	assert.True(t, r.Protected)

	_, ok = table.Route("nope")
	assert.False(t, ok)
}
