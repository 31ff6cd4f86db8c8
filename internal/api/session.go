package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SessionFileName is the name of the credentials file inside the data dir.
const SessionFileName = "session.json"

// User is the authenticated user as returned by the login endpoint.
type User struct {
	ID               string `json:"_id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Email            string `json:"email"`
	IsPremium        bool   `json:"isPremium,omitempty"`
	SubscriptionType string `json:"subscriptionType,omitempty"`
}

// Session stores local-only credentials for the authenticated user.
type Session struct {
	Token    string `json:"token"`
	User     User   `json:"user"`
	APIURL   string `json:"api_url,omitempty"`
	LoggedIn int64  `json:"logged_in,omitempty"`
}

// Login exchanges email and password for a session.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	body := map[string]string{"email": strings.TrimSpace(email), "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, body, &resp); err != nil {
		return Session{}, err
	}
	if resp.Token == "" {
		return Session{}, errors.New("login response did not include a token")
	}
	return Session{
		Token:    resp.Token,
		User:     resp.User,
		APIURL:   c.baseURL,
		LoggedIn: time.Now().Unix(),
	}, nil
}

// SessionPath returns the credentials path inside dataDir.
func SessionPath(dataDir string) string {
	return filepath.Join(dataDir, SessionFileName)
}

// LoadSession reads credentials if present. A missing file returns nil, nil.
func LoadSession(dataDir string) (*Session, error) {
	var session Session
	ok, err := readJSON(SessionPath(dataDir), &session)
	if err != nil {
		return nil, err
	}
	if !ok || session.Token == "" {
		return nil, nil
	}
	return &session, nil
}

// SaveSession writes credentials.
func SaveSession(dataDir string, session Session) error {
	return writeJSONAtomic(SessionPath(dataDir), session, 0o600)
}

// ClearSession removes stored credentials.
func ClearSession(dataDir string) error {
	err := os.Remove(SessionPath(dataDir))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return true, err
	}
	return true, nil
}

func writeJSONAtomic(path string, value any, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
