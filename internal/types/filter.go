package types

import "fmt"

// Filter selects which notifications a projection shows.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterUnread  Filter = "unread"
	FilterLike    Filter = "like"
	FilterComment Filter = "comment"
	FilterFollow  Filter = "follow"
)

// Filters lists the filters in display order.
var Filters = []Filter{FilterAll, FilterUnread, FilterLike, FilterComment, FilterFollow}

// ParseFilter validates a filter name. Empty input means FilterAll.
func ParseFilter(value string) (Filter, error) {
	if value == "" {
		return FilterAll, nil
	}
	for _, f := range Filters {
		if string(f) == value {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q (want one of all, unread, like, comment, follow)", value)
}

// Match reports whether n belongs in the projection for f.
func (f Filter) Match(n Notification) bool {
	switch f {
	case FilterAll, "":
		return true
	case FilterUnread:
		return !n.IsRead
	default:
		return string(n.Type) == string(f)
	}
}

// ServerType returns the type parameter to send to the backend for f.
// "all" and "unread" have no server-side equivalent; unread is applied
// client-side only.
func (f Filter) ServerType() (NotificationType, bool) {
	switch f {
	case FilterAll, FilterUnread, "":
		return "", false
	}
	return NotificationType(f), true
}

// Label is the human-readable tab label.
func (f Filter) Label() string {
	switch f {
	case FilterLike:
		return "Likes"
	case FilterComment:
		return "Comments"
	case FilterFollow:
		return "Follows"
	case FilterUnread:
		return "Unread"
	}
	return "All"
}
