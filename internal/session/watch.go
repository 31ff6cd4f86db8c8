package session

import (
	"context"
	"path/filepath"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/fsnotify/fsnotify"
)

// startWatcher watches the data dir rather than session.json itself, since
// credentials are replaced by rename.
func (s *Session) startWatcher(ctx context.Context) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(s.dataDir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	s.wg.Add(1)
	go s.watchLoop(ctx, watcher)
	return watcher, nil
}

func (s *Session) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != api.SessionFileName {
				continue
			}
			if !s.handleSessionFileEvent(event) {
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logf("session watcher error: %v", err)
		}
	}
}

// handleSessionFileEvent reacts to a change of session.json and reports
// whether watching should continue.
func (s *Session) handleSessionFileEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return true
	}
	stored, err := api.LoadSession(s.dataDir)
	if err != nil {
		// Partially written; the next event will have the full file.
		s.logf("session file unreadable: %v", err)
		return true
	}
	if stored == nil {
		s.fail(ErrLoggedOut)
		s.channel.Disconnect()
		return false
	}
	if stored.Token == s.client.Token() {
		return true
	}
	select {
	case s.reconnect <- stored.Token:
	default:
		// A reconnect is already queued; replace it with the newest token.
		select {
		case <-s.reconnect:
		default:
		}
		s.reconnect <- stored.Token
	}
	return true
}
