package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/adamavenir/socialdash/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL+"/api/", "tok")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func writeEnvelope(w http.ResponseWriter, status int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": success}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	_ = json.NewEncoder(w).Encode(body)
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"http://localhost:5000/api/", "http://localhost:5000/api", false},
		{"  https://example.com  ", "https://example.com", false},
		{"", "", true},
		{"localhost:5000", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeBaseURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %q, %v", tt.in, got, err)
		}
	}
}

func TestListNotificationsSendsTypeAndAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/notifications" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Errorf("missing request id")
		}
		q := r.URL.Query()
		if q.Get("type") != "like" || q.Get("page") != "2" || q.Get("limit") != "20" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		writeEnvelope(w, http.StatusOK, true, "", map[string]any{
			"notifications": []map[string]any{
				{"_id": "n1", "type": "like", "isRead": false, "createdAt": "2025-03-01T12:00:00Z"},
			},
			"pagination": map[string]any{"page": 2, "hasMore": true},
		})
	})

	page, err := client.ListNotifications(context.Background(), ListParams{Page: 2, Type: types.NotificationLike})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Notifications) != 1 || page.Notifications[0].ID != "n1" {
		t.Fatalf("unexpected page %+v", page)
	}
	if !page.HasMore || page.NextPage != 3 {
		t.Fatalf("expected next page 3, got %+v", page)
	}
}

func TestListNotificationsOmitsEmptyType(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("type") {
			t.Errorf("type must be omitted, got %s", r.URL.RawQuery)
		}
		writeEnvelope(w, http.StatusOK, true, "", map[string]any{
			"notifications": []any{},
			"pagination":    map[string]any{"page": 1, "hasMore": false},
		})
	})
	page, err := client.ListNotifications(context.Background(), ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.HasMore || page.Page != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestListNotificationsRejectsPseudoTypes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request must not be sent")
	})
	for _, typ := range []types.NotificationType{"unread", "all"} {
		_, err := client.ListNotifications(context.Background(), ListParams{Type: typ})
		if !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%s: expected ErrInvalidType, got %v", typ, err)
		}
	}
}

func TestAPIErrorMapping(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusTooManyRequests, ErrRateLimited},
	}
	for _, tt := range tests {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, tt.status, false, "nope", nil)
		})
		err := client.MarkRead(context.Background(), "n1")
		if !errors.Is(err, tt.sentinel) {
			t.Fatalf("%d: expected %v, got %v", tt.status, tt.sentinel, err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "nope" {
			t.Fatalf("%d: expected APIError with message, got %v", tt.status, err)
		}
	}
}

func TestUnsuccessfulEnvelopeIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, false, "server said no", nil)
	})
	err := client.MarkAllRead(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "server said no" {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestBulkRequestsSendIDs(t *testing.T) {
	var gotMethod, gotPath string
	var gotIDs []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		var body struct {
			NotificationIDs []string `json:"notificationIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotIDs = body.NotificationIDs
		writeEnvelope(w, http.StatusOK, true, "", nil)
	})

	if err := client.BulkDelete(context.Background(), []string{"a", "b"}); err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/notifications/bulk/delete" || len(gotIDs) != 2 {
		t.Fatalf("unexpected request %s %s %v", gotMethod, gotPath, gotIDs)
	}

	if err := client.BulkMarkRead(context.Background(), []string{"c"}); err != nil {
		t.Fatalf("bulk mark read: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/notifications/bulk/mark-read" || gotIDs[0] != "c" {
		t.Fatalf("unexpected request %s %s %v", gotMethod, gotPath, gotIDs)
	}
}

func TestUnreadCount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "", map[string]any{"unreadCount": 7})
	})
	n, err := client.UnreadCount(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("unread count: %d, %v", n, err)
	}
}

func TestLogin(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeEnvelope(w, http.StatusOK, true, "", map[string]any{
			"token": "jwt",
			"user":  map[string]any{"_id": "u1", "firstName": "Ada", "email": "ada@example.com"},
		})
	})
	session, err := client.Login(context.Background(), " ada@example.com ", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token != "jwt" || session.User.ID != "u1" || session.APIURL != client.BaseURL() {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	dir := t.TempDir()

	got, err := LoadSession(dir)
	if err != nil || got != nil {
		t.Fatalf("expected no session, got %+v, %v", got, err)
	}

	if err := SaveSession(dir, Session{Token: "tok", User: User{ID: "u1"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(SessionPath(dir))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}

	got, err = LoadSession(dir)
	if err != nil || got == nil || got.Token != "tok" {
		t.Fatalf("load: %+v, %v", got, err)
	}

	if err := ClearSession(dir); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := ClearSession(dir); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	got, err = LoadSession(dir)
	if err != nil || got != nil {
		t.Fatalf("expected cleared session, got %+v, %v", got, err)
	}
}
