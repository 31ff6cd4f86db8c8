// Package devserver is an in-memory stand-in for the social backend: the
// notification REST API plus the live channel, for local development and
// tests.
package devserver

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/adamavenir/socialdash/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Options configure a Server.
type Options struct {
	// Email and Password are the only accepted login; empty accepts any.
	Email    string
	Password string
	User     api.User
	// Tokens are accepted without logging in.
	Tokens []string
	// Seed is the initial notification set.
	Seed   []types.Notification
	Logger *log.Logger
	// RequestLog enables echo's request logger.
	RequestLog bool
}

// Server serves the notification API from memory.
type Server struct {
	e        *echo.Echo
	opts     Options
	upgrader websocket.Upgrader

	mu      sync.Mutex
	records map[string]types.Notification
	tokens  map[string]struct{}
	clients map[*liveClient]struct{}
	// failures maps a route name to the number of upcoming requests that
	// should fail with 500.
	failures map[string]int
}

// New creates a server with its routes registered.
func New(opts Options) *Server {
	if opts.User.ID == "" {
		opts.User = api.User{ID: "dev-user", FirstName: "Dev", LastName: "User", Email: opts.Email}
	}
	s := &Server{
		e:        echo.New(),
		opts:     opts,
		records:  make(map[string]types.Notification),
		tokens:   make(map[string]struct{}),
		clients:  make(map[*liveClient]struct{}),
		failures: make(map[string]int),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, token := range opts.Tokens {
		s.tokens[token] = struct{}{}
	}
	for _, rec := range opts.Seed {
		s.records[rec.ID] = rec
	}

	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(middleware.Recover())
	if opts.RequestLog {
		s.e.Use(middleware.Logger())
	}

	g := s.e.Group("/api")
	g.POST("/auth/login", s.login)

	n := g.Group("/notifications", s.requireAuth)
	n.GET("", s.list)
	n.GET("/unread-count", s.unreadCount)
	n.PUT("/mark-all-read", s.markAllRead)
	n.PUT("/bulk/mark-read", s.bulkMarkRead)
	n.DELETE("/bulk/delete", s.bulkDelete)
	n.PUT("/:id/read", s.markRead)
	n.DELETE("/:id", s.remove)

	s.e.GET("/ws", s.live)
	s.e.POST("/dev/push", s.push)

	return s
}

// Handler exposes the server for httptest.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logf("devserver listening on %s (api at /api, live channel at /ws)", addr)
	return s.e.Start(addr)
}

// Shutdown stops the listener and disconnects live clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.DropClients()
	return s.e.Shutdown(ctx)
}

// IssueToken registers and returns a new bearer token.
func (s *Server) IssueToken() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = struct{}{}
	s.mu.Unlock()
	return token
}

// FailNext makes the next n requests to route fail with 500. Route names
// are the handler names: list, markRead, markAllRead, remove, bulkMarkRead,
// bulkDelete, unreadCount.
func (s *Server) FailNext(route string, n int) {
	s.mu.Lock()
	s.failures[route] += n
	s.mu.Unlock()
}

func (s *Server) shouldFail(route string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[route] > 0 {
		s.failures[route]--
		return true
	}
	return false
}

func (s *Server) validToken(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			return fail(c, http.StatusUnauthorized, "Access denied. No token provided.")
		}
		if !s.validToken(strings.TrimPrefix(authz, "Bearer ")) {
			return fail(c, http.StatusUnauthorized, "Invalid token.")
		}
		return next(c)
	}
}

func (s *Server) logf(format string, args ...any) {
	if s.opts.Logger == nil {
		return
	}
	s.opts.Logger.Printf(format, args...)
}
