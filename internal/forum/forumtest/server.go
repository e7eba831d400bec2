// Package forumtest provides an in-process fake of the Discourse admin API
// endpoints used by the portal.
package forumtest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
)

const (
	APIKey      = "test-api-key"
	APIUsername = "system"
)

// Call records one request that reached the fake.
type Call struct {
	Method string
	Path   string
	Body   string
}

// Server is a fake forum. Groups are created with AddGroup; users with
// AddUser. Adding an existing member replies 422 as Discourse does.
type Server struct {
	*httptest.Server

	mu      sync.Mutex
	groups  map[string]int64
	members map[int64]map[string]bool
	users   map[int64]string
	calls   []Call
	nextID  int64
	failAdd int
}

func NewServer() *Server {
	s := &Server{
		groups:  map[string]int64{},
		members: map[int64]map[string]bool{},
		users:   map[int64]string{},
		nextID:  40,
	}
	r := chi.NewRouter()
	r.Use(s.record, s.requireKey)
	r.Get("/groups/{name}.json", s.getGroup)
	r.Put("/groups/{id}/members.json", s.addMember)
	r.Get("/admin/users/{id}.json", s.getUser)
	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) AddGroup(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.groups[name] = s.nextID
	s.members[s.nextID] = map[string]bool{}
	return s.nextID
}

func (s *Server) AddUser(id int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = username
}

// SetFailAdd makes every later add call reply with status. Zero restores
// normal behaviour.
func (s *Server) SetFailAdd(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAdd = status
}

// IsMember reports whether username is in the named group.
func (s *Server) IsMember(group, username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.groups[group]
	return ok && s.members[id][username]
}

func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo counts calls whose method and path match.
func (s *Server) CallsTo(method, path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))
		s.mu.Lock()
		s.calls = append(s.calls, Call{Method: r.Method, Path: r.URL.Path, Body: string(raw)})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Api-Key") != APIKey || r.Header.Get("Api-Username") != APIUsername {
			writeJSON(w, http.StatusForbidden, map[string]any{"errors": []string{"invalid api key"}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	id, ok := s.groups[name]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"errors": []string{"not found"}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": map[string]any{"id": id, "name": name}})
}

func (s *Server) addMember(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail := s.failAdd
	s.mu.Unlock()
	if fail != 0 {
		writeJSON(w, fail, map[string]any{"errors": []string{"failure"}})
		return
	}
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req struct {
		Usernames string `json:"usernames"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Usernames == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []string{"usernames required"}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.members[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"errors": []string{"not found"}})
		return
	}
	if members[req.Usernames] {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"errors": []string{req.Usernames + " is already a member of this group."},
		})
		return
	}
	members[req.Usernames] = true
	writeJSON(w, http.StatusOK, map[string]any{"success": "OK", "usernames": []string{req.Usernames}})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.users[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"errors": []string{"not found"}})
		return
	}
	groups := []map[string]any{}
	for name, gid := range s.groups {
		if s.members[gid][username] {
			groups = append(groups, map[string]any{"id": gid, "name": name})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "username": username, "groups": groups})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
