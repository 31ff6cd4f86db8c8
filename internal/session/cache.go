package session

import (
	"context"

	"github.com/adamavenir/socialdash/internal/db"
)

func (s *Session) cacheLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.saves:
			s.saveCache()
		}
	}
}

func (s *Session) saveCache() {
	if err := db.SaveNotifications(s.cache, s.store.Records()); err != nil {
		s.logf("cache snapshot failed: %v", err)
	}
}
