package devserver

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/adamavenir/socialdash/internal/types"
)

var demoActors = []types.Actor{
	{ID: "u-ada", FirstName: "Ada", LastName: "Lovelace", IsPremium: true},
	{ID: "u-grace", FirstName: "Grace", LastName: "Hopper"},
	{ID: "u-alan", FirstName: "Alan", LastName: "Turing", SubscriptionType: "premium"},
	{ID: "u-katherine", FirstName: "Katherine", LastName: "Johnson"},
	{ID: "u-edsger", FirstName: "Edsger", LastName: "Dijkstra"},
}

var demoTypes = []types.NotificationType{
	types.NotificationLike,
	types.NotificationComment,
	types.NotificationFollow,
	types.NotificationLike,
	types.NotificationShare,
}

var demoPosts = []string{
	"Shipped the new notification center today",
	"Anyone else debugging websockets on a Sunday?",
	"Coffee, code, repeat",
}

var demoComments = []string{
	"This is great, congrats!",
	"How did you handle reconnects?",
	"Love it",
}

// DemoNotification returns the i-th demo record, created at the given time.
func DemoNotification(i int, createdAt time.Time) types.Notification {
	rec := types.Notification{
		ID:        fmt.Sprintf("demo-%03d", i),
		Type:      demoTypes[i%len(demoTypes)],
		From:      demoActors[i%len(demoActors)],
		CreatedAt: createdAt.UTC(),
	}
	payload := map[string]string{}
	switch rec.Type {
	case types.NotificationLike, types.NotificationShare:
		payload["postContent"] = demoPosts[i%len(demoPosts)]
	case types.NotificationComment:
		payload["postContent"] = demoPosts[i%len(demoPosts)]
		payload["commentContent"] = demoComments[i%len(demoComments)]
	}
	if len(payload) > 0 {
		rec.Data, _ = json.Marshal(payload)
	}
	return rec
}

// DemoNotifications returns n records spaced seven minutes apart, newest
// at now. The newest third is unread.
func DemoNotifications(n int, now time.Time) []types.Notification {
	out := make([]types.Notification, 0, n)
	for i := range n {
		rec := DemoNotification(i, now.Add(-time.Duration(i)*7*time.Minute))
		rec.IsRead = i >= n/3
		out = append(out, rec)
	}
	return out
}
