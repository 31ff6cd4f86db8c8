package session

import (
	"context"
	"errors"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/adamavenir/socialdash/internal/channel"
	"github.com/adamavenir/socialdash/internal/types"
)

// pump is the only goroutine that feeds live events into the store.
func (s *Session) pump(ctx context.Context) {
	defer s.wg.Done()

	events := s.channel.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				// Lifecycle over; stay idle until a reconnect or shutdown.
				events = nil
				continue
			}
			s.handle(ev)
		case token := <-s.reconnect:
			s.channel.Disconnect()
			// The old stream is closed once Disconnect returns; keep any
			// records that were already queued on it.
			if events != nil {
				for ev := range events {
					if ev.Kind == types.EventNotification {
						s.handle(ev)
					}
				}
			}
			s.client.SetToken(token)
			s.logf("reconnecting live channel with refreshed credentials")
			s.channel.Connect(ctx, channel.Credentials{Token: token})
			events = s.channel.Events()
		}
	}
}

func (s *Session) handle(ev types.Event) {
	switch ev.Kind {
	case types.EventNotification:
		if ev.Notification == nil {
			return
		}
		rec := *ev.Notification
		s.store.IngestPushed(rec)
		if s.alerter != nil {
			s.alertFor(rec)
		}
	case types.EventConnected:
		s.logf("live channel connected")
	case types.EventDisconnected:
		switch {
		case errors.Is(ev.Err, channel.ErrUnauthorized):
			s.fail(api.ErrUnauthorized)
		case ev.Persistent:
			s.logf("live channel unavailable: %s", ev.Reason)
		}
	}
	s.forward(ev)
}

// alertFor raises an alert from the stored copy of a pushed record. Records
// already read and duplicates the store rejected stay quiet.
func (s *Session) alertFor(pushed types.Notification) {
	stored, ok := s.store.Get(pushed.ID)
	if !ok || stored.IsRead {
		return
	}
	if !pushed.CreatedAt.IsZero() && !stored.CreatedAt.Equal(pushed.CreatedAt) {
		return
	}
	s.alerter.Alert(stored)
}
