package store

import (
	"errors"
	"iter"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/adamavenir/socialdash/internal/types"
)

// ErrUnknownID is returned when a mutation targets a record the store does not hold.
var ErrUnknownID = errors.New("unknown notification id")

// Options configure a Store.
type Options struct {
	Logger *log.Logger
}

// Snapshot summarizes store state at one version. Subscribers receive one
// snapshot per completed operation.
type Snapshot struct {
	Version uint64
	Total   int
	Unread  int
}

// Store is the session's single source of truth for notifications.
//
// Records are kept in arrival order; display order is computed on read.
// The unread count is never stored, it is counted from the records.
type Store struct {
	mu      sync.Mutex
	records map[string]*types.Notification
	order   []string
	version uint64
	logger  *log.Logger

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int

	// deliverMu orders subscriber callbacks; published is the last version delivered.
	deliverMu sync.Mutex
	published uint64
}

// New creates an empty store.
func New(opts Options) *Store {
	return &Store{
		records: make(map[string]*types.Notification),
		subs:    make(map[int]func(Snapshot)),
		logger:  opts.Logger,
	}
}

// Subscribe registers fn to be called after every state change. The
// returned func removes the subscription. Callbacks run on the writer's
// goroutine and must not mutate the store.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// IngestPushed inserts or updates a single record delivered by the live channel.
func (s *Store) IngestPushed(rec types.Notification) {
	s.mu.Lock()
	changed := s.upsertLocked(rec)
	if !changed {
		s.mu.Unlock()
		return
	}
	snap := s.bumpLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// IngestPage merges a page of records. With replace, existing records are
// discarded first (first page of a fresh load).
func (s *Store) IngestPage(records []types.Notification, replace bool) {
	s.mu.Lock()
	if replace {
		s.records = make(map[string]*types.Notification, len(records))
		s.order = s.order[:0]
	}
	for _, rec := range records {
		s.upsertLocked(rec)
	}
	snap := s.bumpLocked()
	s.mu.Unlock()
	s.publish(snap)
}

// UnreadCount counts unread records.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked()
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (types.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return types.Notification{}, false
	}
	return rec.Clone(), true
}

// Snapshot returns the current summary without waiting for a change.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Version: s.version, Total: len(s.order), Unread: s.unreadLocked()}
}

// Projection returns the records matching filter, newest first. The
// sequence is evaluated when iterated and may be iterated again; it never
// mutates the store.
func (s *Store) Projection(filter types.Filter) iter.Seq[types.Notification] {
	return func(yield func(types.Notification) bool) {
		for _, rec := range s.collect(filter) {
			if !yield(rec) {
				return
			}
		}
	}
}

// Records returns every record, newest first.
func (s *Store) Records() []types.Notification {
	return s.collect(types.FilterAll)
}

// Clear removes every record. Called when the session ends.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = make(map[string]*types.Notification)
	s.order = nil
	snap := s.bumpLocked()
	s.mu.Unlock()
	s.publish(snap)
}

func (s *Store) collect(filter types.Filter) []types.Notification {
	s.mu.Lock()
	out := make([]types.Notification, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		if filter.Match(*rec) {
			out = append(out, rec.Clone())
		}
	}
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b types.Notification) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}
		return 0
	})
	return out
}

// upsertLocked applies the dedup rule and reports whether anything changed.
func (s *Store) upsertLocked(rec types.Notification) bool {
	if rec.ID == "" {
		s.logf("dropping notification without id (type %q)", rec.Type)
		return false
	}
	if !rec.Type.Known() {
		s.logf("notification %s has unrecognized type %q, keeping it", rec.ID, rec.Type)
	}

	existing, ok := s.records[rec.ID]
	if !ok {
		stored := rec.Clone()
		s.records[rec.ID] = &stored
		s.order = append(s.order, rec.ID)
		return true
	}

	if !existing.CreatedAt.IsZero() && !rec.CreatedAt.IsZero() && !existing.CreatedAt.Equal(rec.CreatedAt) {
		s.logf("notification %s reuses an id with a different createdAt (%s vs %s), ignoring duplicate",
			rec.ID, existing.CreatedAt.Format(time.RFC3339), rec.CreatedAt.Format(time.RFC3339))
		return false
	}

	merged := rec.Clone()
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = existing.CreatedAt
	}
	// Read flags only move forward outside an explicit rollback.
	merged.IsRead = existing.IsRead || rec.IsRead
	*existing = merged
	return true
}

func (s *Store) unreadLocked() int {
	n := 0
	for _, rec := range s.records {
		if !rec.IsRead {
			n++
		}
	}
	return n
}

func (s *Store) bumpLocked() Snapshot {
	s.version++
	return Snapshot{Version: s.version, Total: len(s.order), Unread: s.unreadLocked()}
}

func (s *Store) publish(snap Snapshot) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	// A concurrent writer may have published a newer version already.
	if snap.Version <= s.published {
		return
	}
	s.published = snap.Version

	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
