// Package apitest runs an in-memory notes API for tests and local demos.
// It follows the REST contract of the real server closely enough for the
// client, the cache and the UI to be exercised end to end.
package apitest

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tgienger/stn/internal/models"
)

// SessionCookie is the name of the session cookie
const SessionCookie = "stn_session"

// Call is one request received by the server
type Call struct {
	Method string
	Path   string // without the /api prefix
	Query  string
	Body   []byte
}

type account struct {
	user     models.User
	password string
}

type failure struct {
	status  int
	message string
}

// Server is the fake API
type Server struct {
	mu       sync.Mutex
	accounts map[string]*account // by email
	sessions map[string]string   // token -> user id
	notes    map[string]*models.Note
	tags     map[string]*models.Tag
	owner    map[string]string // tag id -> user id
	calls    []Call
	failures map[string]failure
	now      func() time.Time

	engine *gin.Engine
	srv    *httptest.Server
}

// New starts a server on a loopback port
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		accounts: make(map[string]*account),
		sessions: make(map[string]string),
		notes:    make(map[string]*models.Note),
		tags:     make(map[string]*models.Tag),
		owner:    make(map[string]string),
		failures: make(map[string]failure),
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.engine = s.routes()
	s.srv = httptest.NewServer(s.engine)
	return s
}

// Close stops the server
func (s *Server) Close() {
	s.srv.Close()
}

// URL returns the API base URL, including the /api prefix
func (s *Server) URL() string {
	return s.srv.URL + "/api"
}

// Handler exposes the gin engine
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Calls returns the requests received so far
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountCalls counts requests with the method whose path starts with prefix
func (s *Server) CountCalls(method, prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method && strings.HasPrefix(c.Path, prefix) {
			n++
		}
	}
	return n
}

// ResetCalls clears the request log
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// FailNext makes the next request with method and path answer status
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, message: message}
}

// SeedUser creates an account
func (s *Server) SeedUser(email, username, password string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccount(email, username, password)
}

func (s *Server) addAccount(email, username, password string) models.User {
	now := s.now()
	u := models.User{ID: uuid.NewString(), Email: email, Username: username, CreatedAt: &now, UpdatedAt: &now}
	s.accounts[strings.ToLower(email)] = &account{user: u, password: password}
	return u
}

// Login opens a session for an existing account and returns its cookie
func (s *Server) Login(email string) *http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return nil
	}
	return s.openSession(acc.user.ID)
}

func (s *Server) openSession(userID string) *http.Cookie {
	token := uuid.NewString()
	s.sessions[token] = userID
	return &http.Cookie{Name: SessionCookie, Value: token, Path: "/", HttpOnly: true}
}

// SeedNote stores a note as is, filling id, timestamps and status when empty
func (s *Server) SeedNote(n models.Note) models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = models.StatusNotStarted
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	n.Children = nil
	c := n.Clone()
	s.notes[n.ID] = &c
	return n
}

// SeedTag stores a tag for a user
func (s *Server) SeedTag(userID string, t models.Tag) models.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	c := t
	s.tags[t.ID] = &c
	s.owner[t.ID] = userID
	return t
}

// Note returns the stored copy of a note
func (s *Server) Note(id string) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return models.Note{}, false
	}
	return n.Clone(), true
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.record)

	api := r.Group("/api")
	{
		api.POST("/auth/register", s.register)
		api.POST("/auth/login", s.login)
		api.POST("/auth/logout", s.logout)
		api.GET("/auth/me", s.requireUser, s.me)

		notes := api.Group("/notes", s.requireUser)
		notes.GET("", s.listNotes)
		notes.GET("/archived", s.listArchived)
		notes.PATCH("/reorder", s.reorderNotes)
		notes.POST("", s.createNote)
		notes.GET("/:id", s.getNote)
		notes.PUT("/:id", s.updateNote)
		notes.DELETE("/:id", s.archiveNote)
		notes.POST("/:id/restore", s.restoreNote)
		notes.DELETE("/:id/permanent", s.deleteNote)

		tags := api.Group("/tags", s.requireUser)
		tags.GET("", s.listTags)
		tags.POST("", s.createTag)
		tags.PUT("/:id", s.updateTag)
		tags.DELETE("/:id", s.deleteTag)
	}
	return r
}

// record logs the call and applies injected failures
func (s *Server) record(c *gin.Context) {
	body, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	path := strings.TrimPrefix(c.Request.URL.Path, "/api")

	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method: c.Request.Method,
		Path:   path,
		Query:  c.Request.URL.RawQuery,
		Body:   body,
	})
	key := c.Request.Method + " " + path
	f, fail := s.failures[key]
	if fail {
		delete(s.failures, key)
	}
	s.mu.Unlock()

	if fail {
		abort(c, f.status, f.message)
		return
	}
	c.Next()
}

func (s *Server) requireUser(c *gin.Context) {
	token, err := c.Cookie(SessionCookie)
	if err != nil {
		abort(c, http.StatusUnauthorized, "Not authenticated")
		return
	}
	s.mu.Lock()
	uid, ok := s.sessions[token]
	s.mu.Unlock()
	if !ok {
		abort(c, http.StatusUnauthorized, "Session expired")
		return
	}
	c.Set("uid", uid)
	c.Next()
}

func writeJSON(c *gin.Context, status int, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Data(status, "application/json; charset=utf-8", b)
}

func abort(c *gin.Context, status int, message string) {
	writeJSON(c, status, gin.H{"message": message})
	c.Abort()
}

func bind(c *gin.Context, v any) bool {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := sonic.Unmarshal(body, v); err != nil {
		abort(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func sortNotes(notes []models.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Position != notes[j].Position {
			return notes[i].Position < notes[j].Position
		}
		return notes[i].CreatedAt.Before(notes[j].CreatedAt)
	})
}
