package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adamavenir/socialdash/internal/types"
)

// DefaultPageSize matches the page size the web client requests.
const DefaultPageSize = 20

// ListParams selects a page of notifications.
type ListParams struct {
	Page  int
	Limit int
	// Type narrows the page to one concrete notification type. Leave empty
	// for the all and unread filters.
	Type types.NotificationType
}

type listResponse struct {
	Notifications []types.Notification `json:"notifications"`
	Pagination    struct {
		Page     int  `json:"page"`
		NextPage int  `json:"nextPage,omitempty"`
		HasMore  bool `json:"hasMore"`
	} `json:"pagination"`
}

type bulkRequest struct {
	NotificationIDs []string `json:"notificationIds"`
}

// ListNotifications fetches one page of notifications.
func (c *Client) ListNotifications(ctx context.Context, params ListParams) (types.Page, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = DefaultPageSize
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(params.Page))
	query.Set("limit", strconv.Itoa(params.Limit))
	if params.Type != "" {
		switch types.Filter(params.Type) {
		case types.FilterAll, types.FilterUnread:
			return types.Page{}, fmt.Errorf("%w: %q is a client-side filter", ErrInvalidType, params.Type)
		}
		query.Set("type", string(params.Type))
	}

	var resp listResponse
	if err := c.doJSON(ctx, http.MethodGet, "/notifications", query, nil, &resp); err != nil {
		return types.Page{}, err
	}
	page := types.Page{
		Notifications: resp.Notifications,
		Page:          resp.Pagination.Page,
		NextPage:      resp.Pagination.NextPage,
		HasMore:       resp.Pagination.HasMore,
	}
	if page.Page == 0 {
		page.Page = params.Page
	}
	if page.HasMore && page.NextPage == 0 {
		page.NextPage = page.Page + 1
	}
	return page, nil
}

// MarkRead marks a single notification as read.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPut, "/notifications/"+url.PathEscape(id)+"/read", nil, nil, nil)
}

// MarkAllRead marks every notification of the current user as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPut, "/notifications/mark-all-read", nil, nil, nil)
}

// Delete removes a single notification.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil, nil)
}

// BulkMarkRead marks the given notifications as read.
func (c *Client) BulkMarkRead(ctx context.Context, ids []string) error {
	return c.doJSON(ctx, http.MethodPut, "/notifications/bulk/mark-read", nil, bulkRequest{NotificationIDs: ids}, nil)
}

// BulkDelete removes the given notifications.
func (c *Client) BulkDelete(ctx context.Context, ids []string) error {
	return c.doJSON(ctx, http.MethodDelete, "/notifications/bulk/delete", nil, bulkRequest{NotificationIDs: ids}, nil)
}

// UnreadCount asks the backend for its unread count. The client's own
// count is always derived from local records; this is for diagnostics.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		UnreadCount int `json:"unreadCount"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/notifications/unread-count", nil, nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}
