package notify

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/adamavenir/socialdash/internal/types"
	"github.com/dustin/go-humanize"
)

// AppName is the title of every desktop alert.
const AppName = "SocialDash"

// Action returns the verb phrase for a notification type.
func Action(t types.NotificationType) string {
	switch t {
	case types.NotificationLike:
		return "liked your post"
	case types.NotificationComment:
		return "commented on your post"
	case types.NotificationFollow:
		return "started following you"
	case types.NotificationShare:
		return "shared your post"
	}
	return "interacted with your content"
}

// Message renders "First Last liked your post". Records without an actor
// name fall back to "Someone".
func Message(rec types.Notification) string {
	name := rec.From.DisplayName()
	if name == "" {
		name = "Someone"
	}
	return name + " " + Action(rec.Type)
}

// Excerpt returns the post or comment text carried in the payload, if any.
func Excerpt(rec types.Notification) string {
	if len(rec.Data) == 0 {
		return ""
	}
	var payload struct {
		PostContent    string `json:"postContent"`
		CommentContent string `json:"commentContent"`
	}
	if err := json.Unmarshal(rec.Data, &payload); err != nil {
		return ""
	}
	if rec.Type == types.NotificationComment && payload.CommentContent != "" {
		return payload.CommentContent
	}
	if payload.PostContent != "" {
		return payload.PostContent
	}
	return payload.CommentContent
}

// Badge formats an unread count for a header badge. Zero renders empty.
func Badge(unread int) string {
	switch {
	case unread <= 0:
		return ""
	case unread > 99:
		return "99+"
	}
	return strconv.Itoa(unread)
}

// Ago renders a relative timestamp such as "3 minutes ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

// Truncate collapses whitespace and shortens s to at most maxLen runes.
func Truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
