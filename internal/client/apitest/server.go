// Package apitest runs an in-process fake of the service-center REST
// backend for tests: conventional CRUD per resource, search, auth and
// profile endpoints, mounted under both /api/v1 and the root.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const VersionPrefix = "/api/v1"

var signingKey = []byte("apitest-secret")

// Recorded is one request the server received.
type Recorded struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	Body          []byte
}

type user struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Password  string `json:"password,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type Server struct {
	*httptest.Server

	// WrapLists answers collection requests as {"data": [...]}.
	WrapLists bool

	mu          sync.Mutex
	collections map[string]*collection
	users       map[string]*user
	tokens      map[string]int64
	profiles    map[int64]map[string]any
	faults      map[string]int
	inUse       map[string]bool
	requests    []Recorded
	nextUserID  int64
}

// New starts a server and closes it when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		collections: make(map[string]*collection),
		users:       make(map[string]*user),
		tokens:      make(map[string]int64),
		profiles:    make(map[int64]map[string]any),
		faults:      make(map[string]int),
		inUse:       make(map[string]bool),
		nextUserID:  1,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record, s.injectFaults)

	mount := func(r chi.Router) {
		r.Post("/auth/login", s.login)
		r.Post("/auth/register", s.register)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/profile/me", s.getProfile)
			r.Put("/profile/me", s.putProfile)

			r.Get("/{resource}", s.list)
			r.Post("/{resource}", s.create)
			r.Get("/{resource}/search", s.search)
			r.Get("/{resource}/{id}", s.get)
			r.Put("/{resource}/{id}", s.update)
			r.Delete("/{resource}/{id}", s.delete)
		})
	}

	r.Route(VersionPrefix, mount)
	mount(r)
	return r
}

// Fail makes "METHOD path" (full path, e.g. "GET /api/v1/profile/me")
// answer with status until Heal is called.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method+" "+path] = status
}

func (s *Server) Heal(method, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.faults, method+" "+path)
}

// MarkInUse makes DELETE of resource/id answer 409.
func (s *Server) MarkInUse(resource string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inUse[resource+"/"+strconv.FormatInt(id, 10)] = true
}

// AddUser registers a user directly and returns its id.
func (s *Server) AddUser(email, password, firstName, lastName, role string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(&user{Email: email, Password: password, FirstName: firstName, LastName: lastName, Role: role})
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]int64)
}

// Seed replaces the collection under resource with items; ids are assigned
// to items lacking one.
func (s *Server) Seed(resource string, items ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(resource)
	c.items = nil
	for _, it := range items {
		c.insert(it)
	}
}

// Items returns a copy of the stored collection.
func (s *Server) Items(resource string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collection(resource).snapshot()
}

// Profile returns the stored profile of user id, nil if none.
func (s *Server) Profile(id int64) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMap(s.profiles[id])
}

// SetProfile replaces the stored profile of user id.
func (s *Server) SetProfile(id int64, p map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[id] = copyMap(p)
}

func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// LastRequest returns the most recent request, zero value if none.
func (s *Server) LastRequest() Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Recorded{}
	}
	return s.requests[len(s.requests)-1]
}

func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Token issues a valid token for an existing user.
func (s *Server) Token(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[email]
	if u == nil {
		return ""
	}
	return s.issueLocked(u)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			Body:          body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status, ok := s.faults[r.Method+" "+r.URL.Path]
		s.mu.Unlock()
		if ok {
			writeJSON(w, status, map[string]string{"message": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, valid := s.tokens[token]
		s.mu.Unlock()
		if !ok || !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) userID(r *http.Request) int64 {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[token]
}

func (s *Server) addUserLocked(u *user) int64 {
	u.ID = s.nextUserID
	s.nextUserID++
	s.users[u.Email] = u
	return u.ID
}

func (s *Server) issueLocked(u *user) string {
	claims := jwt.MapClaims{
		"id":  u.ID,
		"sub": u.Email,
		"exp": time.Now().Add(time.Hour).Unix(),
		"jti": uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	s.tokens[token] = u.ID
	return token
}

func authPayload(token string, u *user) map[string]any {
	return map[string]any{
		"token":     token,
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"role":      u.Role,
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[in.Email]
	if u == nil || u.Password != in.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid email or password"})
		return
	}
	writeJSON(w, http.StatusOK, authPayload(s.issueLocked(u), u))
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in user
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[in.Email]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "email already registered"})
		return
	}
	if in.Role == "" {
		in.Role = "user"
	}
	u := in
	s.addUserLocked(&u)
	writeJSON(w, http.StatusCreated, authPayload(s.issueLocked(&u), &u))
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	id := s.userID(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		var u *user
		for _, cand := range s.users {
			if cand.ID == id {
				u = cand
			}
		}
		now := time.Now().UTC().Format(time.RFC3339)
		p = map[string]any{
			"id": id, "userId": id, "email": u.Email,
			"firstName": u.FirstName, "lastName": u.LastName, "role": u.Role,
			"createdAt": now, "updatedAt": now,
		}
		s.profiles[id] = p
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) putProfile(w http.ResponseWriter, r *http.Request) {
	id := s.userID(r)

	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.profiles[id]
	if p == nil {
		p = map[string]any{"id": id, "userId": id}
	}
	for k, v := range in {
		if k == "id" || k == "userId" {
			continue
		}
		p[k] = v
	}
	p["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	s.profiles[id] = p
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	items := s.collection(chi.URLParam(r, "resource")).snapshot()
	s.mu.Unlock()
	s.writeList(w, items)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.Lock()
	items := s.collection(chi.URLParam(r, "resource")).snapshot()
	s.mu.Unlock()

	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		for _, v := range it {
			if str, ok := v.(string); ok && strings.Contains(strings.ToLower(str), q) {
				out = append(out, it)
				break
			}
		}
	}
	s.writeList(w, out)
}

func (s *Server) writeList(w http.ResponseWriter, items []map[string]any) {
	if s.WrapLists {
		writeJSON(w, http.StatusOK, map[string]any{"data": items, "total": len(items)})
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, _ := s.collection(chi.URLParam(r, "resource")).find(id)
	if it == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it := s.collection(chi.URLParam(r, "resource")).insert(in)
	writeJSON(w, http.StatusCreated, it)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in map[string]any
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(chi.URLParam(r, "resource"))
	_, idx := c.find(id)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	in["id"] = id
	c.items[idx] = copyMap(in)
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	resource := chi.URLParam(r, "resource")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inUse[resource+"/"+strconv.FormatInt(id, 10)] {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "referenced by other records"})
		return
	}
	c := s.collection(resource)
	_, idx := c.find(id)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) collection(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{nextID: 1}
		s.collections[name] = c
	}
	return c
}

type collection struct {
	items  []map[string]any
	nextID int64
}

func (c *collection) insert(in map[string]any) map[string]any {
	it := copyMap(in)
	if id, ok := toID(it["id"]); ok && id > 0 {
		it["id"] = id
		if id >= c.nextID {
			c.nextID = id + 1
		}
	} else {
		it["id"] = c.nextID
		c.nextID++
	}
	c.items = append(c.items, it)
	return copyMap(it)
}

func (c *collection) find(id int64) (map[string]any, int) {
	for i, it := range c.items {
		if got, _ := toID(it["id"]); got == id {
			return copyMap(it), i
		}
	}
	return nil, -1
}

func (c *collection) snapshot() []map[string]any {
	out := make([]map[string]any, len(c.items))
	for i, it := range c.items {
		out[i] = copyMap(it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := toID(out[i]["id"])
		b, _ := toID(out[j]["id"])
		return a < b
	})
	return out
}

func toID(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("bad id %q", chi.URLParam(r, "id"))})
		return 0, false
	}
	return id, true
}

func copyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
