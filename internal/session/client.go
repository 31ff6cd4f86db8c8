package session

import (
	"context"
	"sync"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/adamavenir/socialdash/internal/types"
)

// tokenClient routes REST calls through a client whose token can be swapped
// when credentials change on disk.
type tokenClient struct {
	mu     sync.RWMutex
	client *api.Client
	token  string
}

func newTokenClient(client *api.Client, token string) *tokenClient {
	return &tokenClient{client: client.WithToken(token), token: token}
}

func (c *tokenClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *tokenClient) SetToken(token string) {
	c.mu.Lock()
	c.client = c.client.WithToken(token)
	c.token = token
	c.mu.Unlock()
}

func (c *tokenClient) current() *api.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

func (c *tokenClient) ListNotifications(ctx context.Context, params api.ListParams) (types.Page, error) {
	return c.current().ListNotifications(ctx, params)
}

func (c *tokenClient) MarkRead(ctx context.Context, id string) error {
	return c.current().MarkRead(ctx, id)
}

func (c *tokenClient) MarkAllRead(ctx context.Context) error {
	return c.current().MarkAllRead(ctx)
}

func (c *tokenClient) Delete(ctx context.Context, id string) error {
	return c.current().Delete(ctx, id)
}

func (c *tokenClient) BulkMarkRead(ctx context.Context, ids []string) error {
	return c.current().BulkMarkRead(ctx, ids)
}

func (c *tokenClient) BulkDelete(ctx context.Context, ids []string) error {
	return c.current().BulkDelete(ctx, ids)
}
