package devserver

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/adamavenir/socialdash/internal/types"
	"github.com/labstack/echo/v4"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, response{Success: true, Data: data})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, response{Success: false, Message: message})
}

type bulkRequest struct {
	NotificationIDs []string `json:"notificationIds"`
}

func (s *Server) login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	if s.opts.Email != "" && (req.Email != s.opts.Email || req.Password != s.opts.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	user := s.opts.User
	if user.Email == "" {
		user.Email = req.Email
	}
	return ok(c, map[string]any{"token": s.IssueToken(), "user": user})
}

func (s *Server) list(c echo.Context) error {
	if s.shouldFail("list") {
		return fail(c, http.StatusInternalServerError, "Failed to fetch notifications")
	}
	page := intParam(c, "page", 1)
	limit := intParam(c, "limit", 20)
	typ := c.QueryParam("type")

	s.mu.Lock()
	matched := make([]types.Notification, 0, len(s.records))
	for _, rec := range s.records {
		if typ == "" || string(rec.Type) == typ {
			matched = append(matched, rec)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(matched, newestFirst)

	start := min((page-1)*limit, len(matched))
	end := min(start+limit, len(matched))
	hasMore := end < len(matched)
	pagination := map[string]any{"page": page, "limit": limit, "total": len(matched), "hasMore": hasMore}
	if hasMore {
		pagination["nextPage"] = page + 1
	}
	return ok(c, map[string]any{
		"notifications": matched[start:end],
		"pagination":    pagination,
	})
}

func (s *Server) unreadCount(c echo.Context) error {
	if s.shouldFail("unreadCount") {
		return fail(c, http.StatusInternalServerError, "Failed to count notifications")
	}
	s.mu.Lock()
	count := 0
	for _, rec := range s.records {
		if !rec.IsRead {
			count++
		}
	}
	s.mu.Unlock()
	return ok(c, map[string]any{"unreadCount": count})
}

func (s *Server) markRead(c echo.Context) error {
	if s.shouldFail("markRead") {
		return fail(c, http.StatusInternalServerError, "Failed to mark notification as read")
	}
	id := c.Param("id")
	s.mu.Lock()
	rec, found := s.records[id]
	if found {
		rec.IsRead = true
		s.records[id] = rec
	}
	s.mu.Unlock()
	if !found {
		return fail(c, http.StatusNotFound, "Notification not found")
	}
	return ok(c, rec)
}

func (s *Server) markAllRead(c echo.Context) error {
	if s.shouldFail("markAllRead") {
		return fail(c, http.StatusInternalServerError, "Failed to mark notifications as read")
	}
	s.mu.Lock()
	for id, rec := range s.records {
		rec.IsRead = true
		s.records[id] = rec
	}
	s.mu.Unlock()
	return ok(c, nil)
}

func (s *Server) remove(c echo.Context) error {
	if s.shouldFail("remove") {
		return fail(c, http.StatusInternalServerError, "Failed to delete notification")
	}
	id := c.Param("id")
	s.mu.Lock()
	_, found := s.records[id]
	delete(s.records, id)
	s.mu.Unlock()
	if !found {
		return fail(c, http.StatusNotFound, "Notification not found")
	}
	return ok(c, nil)
}

func (s *Server) bulkMarkRead(c echo.Context) error {
	if s.shouldFail("bulkMarkRead") {
		return fail(c, http.StatusInternalServerError, "Failed to mark notifications as read")
	}
	var req bulkRequest
	if err := c.Bind(&req); err != nil || len(req.NotificationIDs) == 0 {
		return fail(c, http.StatusBadRequest, "notificationIds is required")
	}
	s.mu.Lock()
	for _, id := range req.NotificationIDs {
		if rec, found := s.records[id]; found {
			rec.IsRead = true
			s.records[id] = rec
		}
	}
	s.mu.Unlock()
	return ok(c, nil)
}

func (s *Server) bulkDelete(c echo.Context) error {
	if s.shouldFail("bulkDelete") {
		return fail(c, http.StatusInternalServerError, "Failed to delete notifications")
	}
	var req bulkRequest
	if err := c.Bind(&req); err != nil || len(req.NotificationIDs) == 0 {
		return fail(c, http.StatusBadRequest, "notificationIds is required")
	}
	s.mu.Lock()
	for _, id := range req.NotificationIDs {
		delete(s.records, id)
	}
	s.mu.Unlock()
	return ok(c, nil)
}

// Records returns the server's notifications, newest first.
func (s *Server) Records() []types.Notification {
	s.mu.Lock()
	out := make([]types.Notification, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	s.mu.Unlock()
	slices.SortFunc(out, newestFirst)
	return out
}

func newestFirst(a, b types.Notification) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	}
	return 0
}

func intParam(c echo.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
