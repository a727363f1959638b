// Package router maps in-app paths to screens and decides, from the session,
// which screen a navigation actually lands on.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ErrUnknownRoute is returned by Match for paths no screen handles.
var ErrUnknownRoute = errors.New("unknown route")

// Name identifies a screen.
type Name string

const (
	Landing   Name = "landing"
	Login     Name = "login"
	Register  Name = "register"
	Home      Name = "home"
	Profile   Name = "profile"
	PetNew    Name = "pet-new"
	Sanctuary Name = "sanctuary"
	PetDetail Name = "pet-detail"
)

// Route is one entry of the route table.
type Route struct {
	Name      Name
	Pattern   string
	Protected bool
}

// Routes is the route table. /app/pets/new is matched before /app/pets/{id}.
var Routes = []Route{
	{Name: Landing, Pattern: "/"},
	{Name: Login, Pattern: "/login"},
	{Name: Register, Pattern: "/register"},
	{Name: Home, Pattern: "/app", Protected: true},
	{Name: Profile, Pattern: "/app/profile", Protected: true},
	{Name: PetNew, Pattern: "/app/pets/new", Protected: true},
	{Name: Sanctuary, Pattern: "/app/sanctuary", Protected: true},
	{Name: PetDetail, Pattern: "/app/pets/{id:[0-9]+}", Protected: true},
}

// Well-known targets.
const (
	PathLanding         = "/"
	PathLogin           = "/login"
	PathLoginExpired    = "/login?reason=expired"
	PathLoginRegistered = "/login?reason=registered"
	PathRegister        = "/register"
	PathHome            = "/app"
	PathProfile         = "/app/profile"
	PathPetNew          = "/app/pets/new"
	PathSanctuary       = "/app/sanctuary"
)

// Login reasons carried in the query string.
const (
	ReasonExpired    = "expired"
	ReasonRegistered = "registered"
)

// PetPath returns the detail path of a pet.
func PetPath(id int64) string {
	return fmt.Sprintf("/app/pets/%d", id)
}

// Match is a resolved navigation.
type Match struct {
	Route  Route
	Path   string
	Params map[string]string
	Query  url.Values
}

// URL returns the path with its query string.
func (m Match) URL() string {
	if len(m.Query) == 0 {
		return m.Path
	}
	return m.Path + "?" + m.Query.Encode()
}

// Reason returns the "reason" query parameter.
func (m Match) Reason() string {
	return m.Query.Get("reason")
}

// PetID returns the {id} parameter.
func (m Match) PetID() (int64, error) {
	raw, ok := m.Params["id"]
	if !ok {
		return 0, fmt.Errorf("route %s has no pet id", m.Route.Name)
	}
	return strconv.ParseInt(raw, 10, 64)
}

// Table matches paths against Routes.
type Table struct {
	mux       *chi.Mux
	byPattern map[string]Route
	byName    map[Name]Route
}

// New builds the route table.
func New() *Table {
	t := &Table{
		mux:       chi.NewRouter(),
		byPattern: make(map[string]Route, len(Routes)),
		byName:    make(map[Name]Route, len(Routes)),
	}
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for _, r := range Routes {
		t.mux.Get(r.Pattern, noop)
		t.byPattern[r.Pattern] = r
		t.byName[r.Name] = r
	}
	return t
}

// Match resolves target ("/path?query") without applying the guard.
func (t *Table) Match(target string) (Match, error) {
	u, err := url.Parse(target)
	if err != nil {
		return Match{}, fmt.Errorf("%w: %s", ErrUnknownRoute, target)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	rctx := chi.NewRouteContext()
	pattern := t.mux.Find(rctx, http.MethodGet, path)
	if pattern == "" {
		return Match{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}
	route, ok := t.byPattern[pattern]
	if !ok {
		return Match{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		params[k] = rctx.URLParams.Values[i]
	}
	return Match{Route: route, Path: path, Params: params, Query: u.Query()}, nil
}

// Resolve applies the guard: unknown paths land on the landing screen and
// protected screens without a session land on login. The original target is
// not remembered.
func (t *Table) Resolve(target string, authenticated bool) Match {
	m, err := t.Match(target)
	if err != nil {
		m = t.must(PathLanding)
	}
	if m.Route.Protected && !authenticated {
		return t.must(PathLogin)
	}
	return m
}

// Allowed reports whether a session state may see target as requested.
func (t *Table) Allowed(target string, authenticated bool) bool {
	m, err := t.Match(target)
	return err == nil && (!m.Route.Protected || authenticated)
}

// Route returns the table entry for name.
func (t *Table) Route(name Name) (Route, bool) {
	r, ok := t.byName[name]
	return r, ok
}

func (t *Table) must(target string) Match {
	m, err := t.Match(target)
	if err != nil {
		panic(err)
	}
	return m
}
