package types

import (
	"encoding/json"
	"time"
)

// NotificationType is the kind of interaction a notification reports.
// Values outside the known set are kept as-is and rendered generically.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationShare   NotificationType = "share"
)

// Known reports whether t is one of the recognized notification types.
func (t NotificationType) Known() bool {
	switch t {
	case NotificationLike, NotificationComment, NotificationFollow, NotificationShare:
		return true
	}
	return false
}

// Actor is the cached view of the user who triggered a notification.
// The display fields may go stale; only ID is authoritative.
type Actor struct {
	ID               string `json:"_id"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	IsPremium        bool   `json:"isPremium,omitempty"`
	SubscriptionType string `json:"subscriptionType,omitempty"`
}

// Premium reports whether the actor has a premium subscription.
func (a Actor) Premium() bool {
	return a.IsPremium || a.SubscriptionType == "premium"
}

// DisplayName returns "First Last", trimmed.
func (a Actor) DisplayName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Notification is a single notification record.
type Notification struct {
	ID        string           `json:"_id"`
	Type      NotificationType `json:"type"`
	From      Actor            `json:"from"`
	Message   string           `json:"message,omitempty"`
	Data      json.RawMessage  `json:"data,omitempty"`
	IsRead    bool             `json:"isRead"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Before reports whether n sorts ahead of other: newest first, then by id.
func (n Notification) Before(other Notification) bool {
	if !n.CreatedAt.Equal(other.CreatedAt) {
		return n.CreatedAt.After(other.CreatedAt)
	}
	return n.ID < other.ID
}

// Clone returns a copy that shares no mutable memory with n.
func (n Notification) Clone() Notification {
	if n.Data != nil {
		n.Data = append(json.RawMessage(nil), n.Data...)
	}
	return n
}

// Page is one page of notifications returned by the backend.
type Page struct {
	Notifications []Notification `json:"notifications"`
	Page          int            `json:"page"`
	NextPage      int            `json:"nextPage,omitempty"`
	HasMore       bool           `json:"hasMore"`
}
