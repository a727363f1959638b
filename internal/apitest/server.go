// Package apitest runs an in-memory pet backend on httptest for tests.
//
// The stub implements the whole HTTP contract the client consumes, keeps a
// log of every request it saw, and lets a test force any route to answer
// with a fixed status and body.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"axolotl/internal/types"

	"github.com/go-chi/chi/v5"
)

// Request is one request the stub received.
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	Body          string
}

type account struct {
	password string
	user     types.User
}

type override struct {
	status int
	body   string
	times  int // 0 = until cleared
}

// Server is a fake backend.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]*account // by email
	tokens    map[string]string   // token -> email
	pets      map[int64]*types.Pet
	nextPetID int64
	nextUser  int64
	tokenSeq  int
	requests  []Request
	overrides map[string]*override // "METHOD /pattern"

	// RegisterIssuesToken controls whether /auth/register returns a token.
	RegisterIssuesToken bool
}

// New starts a stub server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts:  make(map[string]*account),
		tokens:    make(map[string]string),
		pets:      make(map[int64]*types.Pet),
		nextPetID: 1,
		nextUser:  1,
		overrides: make(map[string]*override),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Use(s.override)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/register", s.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/users/me", s.handleMe)
		r.Put("/users/me", s.handleUpdateMe)
		r.Get("/api/pets", s.handleListPets)
		r.Post("/api/pets", s.handleCreatePet)
		r.Get("/api/pets/{id}", s.handleGetPet)
		r.Put("/api/pets/{id}", s.handleUpdatePet)
		r.Delete("/api/pets/{id}", s.handleDeletePet)
		r.Post("/api/pets/{id}/actions", s.handleAction)
	})
	return r
}

// =============================================================================
// SEEDING AND INSPECTION
// =============================================================================

// AddUser creates an account and returns a valid token for it.
func (s *Server) AddUser(email, password, username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addUserLocked(email, password, username)
	return s.issueLocked(email)
}

// SetToken makes token valid for email. The account must exist.
func (s *Server) SetToken(token, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = email
}

// RevokeAll invalidates every token so the next authenticated call gets 401.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// AddPet stores p for its owner, assigning an id when p.ID is zero.
func (s *Server) AddPet(p types.Pet) types.Pet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextPetID
	}
	if p.ID >= s.nextPetID {
		s.nextPetID = p.ID + 1
	}
	if p.Stage == "" {
		p.Stage = stageFor(p.Level)
	}
	cp := p
	s.pets[p.ID] = &cp
	return cp
}

// Pet returns the stored pet.
func (s *Server) Pet(id int64) (types.Pet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pets[id]
	if !ok {
		return types.Pet{}, false
	}
	return *p, true
}

// Fail forces method+pattern (a chi pattern such as /api/pets/{id}) to answer
// status with body. times == 0 keeps failing until Clear.
func (s *Server) Fail(method, pattern string, status int, body string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[method+" "+pattern] = &override{status: status, body: body, times: times}
}

// Clear removes every forced response.
func (s *Server) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[string]*override)
}

// Requests returns a copy of the request log.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Count returns how many requests matched method and exact path.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Reset clears the request log.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type ctxEmail struct{}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			Body:          string(body),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) override(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + patternFor(r.URL.Path)
		s.mu.Lock()
		o, ok := s.overrides[key]
		if ok && o.times > 0 {
			o.times--
			if o.times == 0 {
				delete(s.overrides, key)
			}
		}
		s.mu.Unlock()

		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if o.body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(o.status)
		_, _ = w.Write([]byte(o.body))
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		email, valid := s.tokens[token]
		s.mu.Unlock()
		if !ok || !valid {
			writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withEmail(r.Context(), email)))
	})
}

// patternFor maps a concrete path to the pattern used by Fail.
func patternFor(path string) string {
	segs := strings.Split(path, "/")
	for i, seg := range segs {
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segs[i] = "{id}"
		}
	}
	return strings.Join(segs, "/")
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds types.Credentials
	if !decodeBody(w, r, &creds) {
		return
	}
	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(creds.Email)]
	if !ok || acc.password != creds.Password {
		s.mu.Unlock()
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid credentials")
		return
	}
	token := s.issueLocked(acc.user.Email)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, types.AuthResponse{Token: token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg types.Registration
	if !decodeBody(w, r, &reg) {
		return
	}
	if reg.Email == "" || reg.Password == "" || reg.Username == "" {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input data")
		return
	}
	s.mu.Lock()
	if _, exists := s.accounts[strings.ToLower(reg.Email)]; exists {
		s.mu.Unlock()
		writeError(w, r, http.StatusConflict, "CONFLICT", "Email already registered")
		return
	}
	s.addUserLocked(reg.Email, reg.Password, reg.Username)
	var resp types.AuthResponse
	if s.RegisterIssuesToken {
		resp.Token = s.issueLocked(reg.Email)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acc := s.accounts[strings.ToLower(emailFrom(r.Context()))]
	var user types.User
	if acc != nil {
		user = acc.user
	}
	s.mu.Unlock()
	if acc == nil {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var upd types.ProfileUpdate
	if !decodeBody(w, r, &upd) {
		return
	}
	s.mu.Lock()
	acc := s.accounts[strings.ToLower(emailFrom(r.Context()))]
	if acc == nil {
		s.mu.Unlock()
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "User not found")
		return
	}
	if upd.Username != "" {
		acc.user.Username = upd.Username
	}
	acc.user.Bio = upd.Bio
	acc.user.AvatarURL = upd.AvatarURL
	user := acc.user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleListPets(w http.ResponseWriter, r *http.Request) {
	email := emailFrom(r.Context())
	s.mu.Lock()
	out := make([]types.Pet, 0, len(s.pets))
	for id := int64(1); id < s.nextPetID; id++ {
		if p, ok := s.pets[id]; ok && strings.EqualFold(p.OwnerEmail, email) {
			out = append(out, *p)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePet(w http.ResponseWriter, r *http.Request) {
	var req types.NewPet
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input data")
		return
	}
	if _, err := types.ParseColor(string(req.Color)); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid color")
		return
	}
	p := s.AddPet(types.Pet{
		Name:       req.Name,
		Color:      req.Color,
		Hunger:     20,
		Stamina:    80,
		Happiness:  70,
		Level:      1,
		OwnerEmail: emailFrom(r.Context()),
	})
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPet(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPet(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePet(w http.ResponseWriter, r *http.Request) {
	var upd types.PetUpdate
	if !decodeBody(w, r, &upd) {
		return
	}
	if err := upd.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	p, ok := s.ownedPet(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	stored := s.pets[p.ID]
	stored.Hunger = upd.Hunger
	stored.Happiness = upd.Happiness
	out := *stored
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeletePet(w http.ResponseWriter, r *http.Request) {
	p, ok := s.ownedPet(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.pets, p.ID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req types.ActionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	action, err := types.ParseAction(string(req.Action))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Unknown action")
		return
	}
	p, ok := s.ownedPet(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	stored := s.pets[p.ID]
	if msg := precondition(stored, action); msg != "" {
		s.mu.Unlock()
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", msg)
		return
	}
	res := apply(stored, action)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) ownedPet(w http.ResponseWriter, r *http.Request) (types.Pet, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid pet id")
		return types.Pet{}, false
	}
	s.mu.Lock()
	p, ok := s.pets[id]
	var out types.Pet
	if ok {
		out = *p
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Pet %d not found", id))
		return types.Pet{}, false
	}
	if !strings.EqualFold(out.OwnerEmail, emailFrom(r.Context())) {
		writeError(w, r, http.StatusForbidden, "FORBIDDEN", "Not your pet")
		return types.Pet{}, false
	}
	return out, true
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Server) addUserLocked(email, password, username string) {
	s.accounts[strings.ToLower(email)] = &account{
		password: password,
		user: types.User{
			ID:       s.nextUser,
			Username: username,
			Email:    email,
			Roles:    []string{"USER"},
		},
	}
	s.nextUser++
}

func (s *Server) issueLocked(email string) string {
	s.tokenSeq++
	token := fmt.Sprintf("tok-%d", s.tokenSeq)
	s.tokens[token] = email
	return token
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Malformed JSON or invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"status":  status,
		"error":   code,
		"message": message,
		"path":    r.URL.Path,
	})
}
