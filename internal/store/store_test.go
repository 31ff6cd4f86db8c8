package store

import (
	"bytes"
	"context"
	"errors"
	"log"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/adamavenir/socialdash/internal/types"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func rec(id string, minutes int, read bool) types.Notification {
	return types.Notification{
		ID:        id,
		Type:      types.NotificationLike,
		From:      types.Actor{ID: "u-" + id, FirstName: "Ada", LastName: "Lovelace"},
		IsRead:    read,
		CreatedAt: base.Add(time.Duration(minutes) * time.Minute),
	}
}

func ids(s *Store, f types.Filter) []string {
	var out []string
	for n := range s.Projection(f) {
		out = append(out, n.ID)
	}
	return out
}

func requireUnreadMatchesRecords(t *testing.T, s *Store) {
	t.Helper()
	want := 0
	for _, n := range s.Records() {
		if !n.IsRead {
			want++
		}
	}
	if got := s.UnreadCount(); got != want {
		t.Fatalf("unread count %d disagrees with records (%d unread)", got, want)
	}
	if snap := s.Snapshot(); snap.Unread != want {
		t.Fatalf("snapshot unread %d disagrees with records (%d unread)", snap.Unread, want)
	}
}

func TestDedupRegardlessOfSource(t *testing.T) {
	tests := []struct {
		name  string
		apply func(s *Store, n types.Notification)
	}{
		{"push then page", func(s *Store, n types.Notification) {
			s.IngestPushed(n)
			s.IngestPage([]types.Notification{n}, false)
		}},
		{"page then push", func(s *Store, n types.Notification) {
			s.IngestPage([]types.Notification{n}, false)
			s.IngestPushed(n)
		}},
		{"push twice", func(s *Store, n types.Notification) {
			s.IngestPushed(n)
			s.IngestPushed(n)
		}},
		{"duplicate within page", func(s *Store, n types.Notification) {
			s.IngestPage([]types.Notification{n, n}, true)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{})
			tt.apply(s, rec("a", 0, false))
			if s.Len() != 1 {
				t.Fatalf("expected 1 record, got %d", s.Len())
			}
			requireUnreadMatchesRecords(t, s)
		})
	}
}

func TestDuplicateReplacesMetadataInPlace(t *testing.T) {
	s := New(Options{})
	s.IngestPage([]types.Notification{rec("a", 0, false), rec("b", 1, false)}, true)

	updated := rec("a", 0, false)
	updated.From.FirstName = "Grace"
	s.IngestPushed(updated)

	got, ok := s.Get("a")
	if !ok {
		t.Fatal("expected record a")
	}
	if got.From.FirstName != "Grace" {
		t.Fatalf("metadata not replaced: %q", got.From.FirstName)
	}
	if order := ids(s, types.FilterAll); !slices.Equal(order, []string{"b", "a"}) {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestDuplicateWithDifferentCreatedAtIsIgnored(t *testing.T) {
	var buf bytes.Buffer
	s := New(Options{Logger: log.New(&buf, "", 0)})
	s.IngestPushed(rec("a", 0, false))

	imposter := rec("a", 5, true)
	imposter.From.FirstName = "Mallory"
	s.IngestPushed(imposter)

	got, _ := s.Get("a")
	if got.From.FirstName != "Ada" || got.IsRead {
		t.Fatalf("duplicate with different createdAt should be ignored, got %+v", got)
	}
	if !strings.Contains(buf.String(), "different createdAt") {
		t.Fatalf("expected data error to be logged, got %q", buf.String())
	}
}

func TestIngestKeepsReadFlag(t *testing.T) {
	s := New(Options{})
	s.IngestPushed(rec("a", 0, false))
	m, err := s.MarkRead("a")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	m.Commit()

	// A page fetched before the mark-read landed still says unread.
	s.IngestPage([]types.Notification{rec("a", 0, false)}, false)
	got, _ := s.Get("a")
	if !got.IsRead {
		t.Fatal("stale page should not flip a read record back to unread")
	}
	requireUnreadMatchesRecords(t, s)
}

func TestUnknownTypeIsPreserved(t *testing.T) {
	s := New(Options{})
	n := rec("a", 0, false)
	n.Type = "mention"
	s.IngestPushed(n)

	got, ok := s.Get("a")
	if !ok || got.Type != "mention" {
		t.Fatalf("unknown type should be kept, got %+v", got)
	}
	if order := ids(s, types.FilterAll); len(order) != 1 {
		t.Fatalf("unknown type should appear in all projection, got %v", order)
	}
	if order := ids(s, types.FilterLike); len(order) != 0 {
		t.Fatalf("unknown type should not match like filter, got %v", order)
	}
}

func TestRecordWithoutIDIsDropped(t *testing.T) {
	s := New(Options{})
	s.IngestPushed(types.Notification{Type: types.NotificationLike, CreatedAt: base})
	if s.Len() != 0 {
		t.Fatalf("expected record without id to be dropped")
	}
}

func TestProjectionOrdering(t *testing.T) {
	orders := [][]types.Notification{
		{rec("t3", 1, false), rec("t1", 3, false), rec("t2", 2, false)},
		{rec("t1", 3, false), rec("t2", 2, false), rec("t3", 1, false)},
		{rec("t2", 2, false), rec("t3", 1, false), rec("t1", 3, false)},
	}
	for i, batch := range orders {
		s := New(Options{})
		for _, n := range batch {
			s.IngestPushed(n)
		}
		if got := ids(s, types.FilterAll); !slices.Equal(got, []string{"t1", "t2", "t3"}) {
			t.Fatalf("case %d: unexpected order %v", i, got)
		}
	}
}

func TestProjectionTieBreaksByID(t *testing.T) {
	s := New(Options{})
	s.IngestPushed(rec("b", 0, false))
	s.IngestPushed(rec("c", 0, false))
	s.IngestPushed(rec("a", 0, false))
	if got := ids(s, types.FilterAll); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestProjectionIsRestartableAndLazy(t *testing.T) {
	s := New(Options{})
	s.IngestPushed(rec("a", 0, false))
	seq := s.Projection(types.FilterUnread)

	s.IngestPushed(rec("b", 1, false))
	first := slices.Collect(seq)
	if len(first) != 2 {
		t.Fatalf("projection should reflect state at iteration time, got %d", len(first))
	}

	m, _ := s.MarkRead("a")
	m.Commit()
	second := slices.Collect(seq)
	if len(second) != 1 || second[0].ID != "b" {
		t.Fatalf("unexpected second iteration: %+v", second)
	}

	for range seq {
		break
	}
	if s.Len() != 2 {
		t.Fatal("projection must not mutate the store")
	}
}

func TestMarkReadRollback(t *testing.T) {
	s := New(Options{})
	s.IngestPage([]types.Notification{rec("a", 0, false), rec("b", 1, true)}, true)

	var snaps []Snapshot
	cancel := s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })
	defer cancel()

	m, err := s.MarkRead("a")
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if s.UnreadCount() != 0 {
		t.Fatalf("optimistic mark read not applied")
	}

	cause := errors.New("network down")
	err = m.Settle(cause)
	var mutErr *MutationError
	if !errors.As(err, &mutErr) || !errors.Is(err, cause) {
		t.Fatalf("expected MutationError wrapping cause, got %v", err)
	}
	if mutErr.Op != OpMarkRead {
		t.Fatalf("unexpected op %s", mutErr.Op)
	}

	got, _ := s.Get("a")
	if got.IsRead {
		t.Fatal("rollback should restore unread state")
	}
	requireUnreadMatchesRecords(t, s)

	if len(snaps) != 2 {
		t.Fatalf("expected one notification for apply and one for rollback, got %d", len(snaps))
	}
	if snaps[1].Unread != 1 {
		t.Fatalf("rollback snapshot should report 1 unread, got %d", snaps[1].Unread)
	}

	m.Rollback()
	if len(snaps) != 2 {
		t.Fatal("second rollback should be a no-op")
	}
}

func TestMarkReadUnknownID(t *testing.T) {
	s := New(Options{})
	if _, err := s.MarkRead("missing"); !errors.Is(err, ErrUnknownID) {
		t.Fatalf("expected ErrUnknownID, got %v", err)
	}
	if _, err := s.Remove("missing"); !errors.Is(err, ErrUnknownID) {
		t.Fatalf("expected ErrUnknownID, got %v", err)
	}
}

func TestMarkAllReadRollbackIsSingleCycle(t *testing.T) {
	s := New(Options{})
	s.IngestPage([]types.Notification{rec("a", 0, false), rec("b", 1, false), rec("c", 2, true)}, true)

	m := s.MarkAllRead()
	if s.UnreadCount() != 0 {
		t.Fatal("mark all read not applied")
	}

	calls := 0
	cancel := s.Subscribe(func(Snapshot) { calls++ })
	defer cancel()

	m.Rollback()
	if calls != 1 {
		t.Fatalf("rollback should notify once, got %d", calls)
	}
	if s.UnreadCount() != 2 {
		t.Fatalf("expected 2 unread after rollback, got %d", s.UnreadCount())
	}
	c, _ := s.Get("c")
	if !c.IsRead {
		t.Fatal("rollback must not touch records that were already read")
	}
}

func TestRemoveManyRollbackRestoresPositions(t *testing.T) {
	s := New(Options{})
	s.IngestPage([]types.Notification{rec("a", 0, false), rec("b", 1, false), rec("c", 2, false), rec("d", 3, true)}, true)

	m := s.RemoveMany([]string{"b", "d", "b", "missing"})
	if s.Len() != 2 {
		t.Fatalf("expected 2 records after removal, got %d", s.Len())
	}
	requireUnreadMatchesRecords(t, s)

	m.Rollback()
	if got := s.order; !slices.Equal(got, []string{"a", "b", "c", "d"}) {
		t.Fatalf("arrival order not restored: %v", got)
	}
	if got := ids(s, types.FilterAll); !slices.Equal(got, []string{"d", "c", "b", "a"}) {
		t.Fatalf("unexpected projection after rollback: %v", got)
	}
	requireUnreadMatchesRecords(t, s)
}

func TestRemoveRollbackSkipsReingested(t *testing.T) {
	s := New(Options{})
	s.IngestPushed(rec("a", 0, false))
	m, err := s.Remove("a")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	s.IngestPushed(rec("a", 0, true))
	m.Rollback()
	if s.Len() != 1 {
		t.Fatalf("rollback should not duplicate a re-ingested record, got %d", s.Len())
	}
}

func TestApplyCommitsOnSuccess(t *testing.T) {
	s := New(Options{})
	s.IngestPushed(rec("a", 0, false))
	m, _ := s.MarkRead("a")
	if err := Apply(t.Context(), m, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("apply: %v", err)
	}
	m.Rollback()
	if s.UnreadCount() != 0 {
		t.Fatal("rollback after commit should be a no-op")
	}
}

func TestUnreadCountTracksRecordsAcrossOperations(t *testing.T) {
	s := New(Options{})
	steps := []func(){
		func() { s.IngestPage([]types.Notification{rec("a", 0, false), rec("b", 1, true)}, true) },
		func() { s.IngestPushed(rec("c", 2, false)) },
		func() { m, _ := s.MarkRead("a"); m.Commit() },
		func() { s.IngestPage([]types.Notification{rec("d", 3, false)}, false) },
		func() { s.MarkReadMany([]string{"c", "zzz"}).Rollback() },
		func() { s.RemoveMany([]string{"c"}).Commit() },
		func() { s.MarkAllRead().Rollback() },
		func() { s.MarkAllRead().Commit() },
		func() { s.IngestPushed(rec("e", 4, false)) },
		func() { s.Clear() },
	}
	for i, step := range steps {
		step()
		t.Logf("step %d: %d records", i, s.Len())
		requireUnreadMatchesRecords(t, s)
	}
}

func TestEndToEndScenario(t *testing.T) {
	s := New(Options{})
	if s.UnreadCount() != 0 {
		t.Fatal("empty store should have no unread")
	}

	t1 := base
	t2 := base.Add(time.Minute)
	s.IngestPage([]types.Notification{{ID: "a", Type: types.NotificationLike, CreatedAt: t1}}, true)
	if s.UnreadCount() != 1 {
		t.Fatalf("expected 1 unread, got %d", s.UnreadCount())
	}

	s.IngestPushed(types.Notification{ID: "b", Type: types.NotificationComment, CreatedAt: t2})
	if got := ids(s, types.FilterAll); !slices.Equal(got, []string{"b", "a"}) {
		t.Fatalf("unexpected order %v", got)
	}
	if s.UnreadCount() != 2 {
		t.Fatalf("expected 2 unread, got %d", s.UnreadCount())
	}

	s.MarkAllRead().Commit()
	if s.UnreadCount() != 0 {
		t.Fatalf("expected 0 unread, got %d", s.UnreadCount())
	}
	for _, n := range s.Records() {
		if !n.IsRead {
			t.Fatalf("record %s still unread", n.ID)
		}
	}

	m, err := s.Remove("a")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	m.Commit()
	if got := ids(s, types.FilterAll); !slices.Equal(got, []string{"b"}) {
		t.Fatalf("expected only b, got %v", got)
	}
}

func TestSubscribeCancel(t *testing.T) {
	s := New(Options{})
	calls := 0
	cancel := s.Subscribe(func(Snapshot) { calls++ })
	s.IngestPushed(rec("a", 0, false))
	cancel()
	cancel()
	s.IngestPushed(rec("b", 1, false))
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
