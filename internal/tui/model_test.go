package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/adamavenir/socialdash/internal/store"
	"github.com/adamavenir/socialdash/internal/types"
	"github.com/adamavenir/socialdash/internal/view"
	tea "github.com/charmbracelet/bubbletea"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	mu         sync.Mutex
	records    []types.Notification
	params     []api.ListParams
	markedRead []string
	markErr    error
	// gate, when set, holds page loads until it is closed.
	gate chan struct{}
}

func (f *fakeFetcher) ListNotifications(_ context.Context, params api.ListParams) (types.Page, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = append(f.params, params)
	var out []types.Notification
	for _, rec := range f.records {
		if params.Type == "" || rec.Type == params.Type {
			out = append(out, rec)
		}
	}
	return types.Page{Notifications: out, Page: params.Page}, nil
}

func (f *fakeFetcher) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.markedRead = append(f.markedRead, id)
	return nil
}

func (f *fakeFetcher) MarkAllRead(context.Context) error            { return nil }
func (f *fakeFetcher) Delete(context.Context, string) error         { return nil }
func (f *fakeFetcher) BulkMarkRead(context.Context, []string) error { return nil }
func (f *fakeFetcher) BulkDelete(context.Context, []string) error   { return nil }

func (f *fakeFetcher) lastParams() api.ListParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.params[len(f.params)-1]
}

func (f *fakeFetcher) setMarkErr(err error) {
	f.mu.Lock()
	f.markErr = err
	f.mu.Unlock()
}

func (f *fakeFetcher) marked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.markedRead...)
}

func newTestModel(t *testing.T) (*Model, *fakeFetcher) {
	t.Helper()
	fetcher := &fakeFetcher{records: []types.Notification{
		{ID: "a", Type: types.NotificationLike, From: types.Actor{FirstName: "Ada"}, CreatedAt: base.Add(2 * time.Minute)},
		{ID: "b", Type: types.NotificationFollow, From: types.Actor{FirstName: "Bo"}, CreatedAt: base.Add(time.Minute)},
		{ID: "c", Type: types.NotificationLike, From: types.Actor{FirstName: "Cy"}, CreatedAt: base, IsRead: true},
	}}
	st := store.New(store.Options{})
	v := view.New(st, fetcher, view.Options{PageSize: 10})
	m := NewModel(context.Background(), Options{Store: st, View: v})
	t.Cleanup(m.Close)

	if err := v.SetFilter(context.Background(), types.FilterAll); err != nil {
		t.Fatalf("load: %v", err)
	}
	m.Update(storeChangedMsg{})
	return m, fetcher
}

func press(t *testing.T, m *Model, msg tea.KeyMsg) {
	t.Helper()
	_, cmd := m.Update(msg)
	if cmd == nil {
		return
	}
	if done, ok := cmd().(actionDoneMsg); ok {
		m.Update(done)
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestRenderShowsBadgeTabsAndRows(t *testing.T) {
	m, _ := newTestModel(t)
	out := m.View()

	for _, want := range []string{"SocialDash", "2", "All", "Unread", "Likes", "Ada liked your post", "Bo started following you", "idle"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view:\n%s", want, out)
		}
	}
}

func TestCursorSelectionAndMarkRead(t *testing.T) {
	m, fetcher := newTestModel(t)

	press(t, m, runes("j"))
	if m.cursor != 1 {
		t.Fatalf("expected cursor 1, got %d", m.cursor)
	}
	press(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	if !m.view.IsSelected("b") {
		t.Fatal("expected b to be selected")
	}

	press(t, m, runes("r"))
	if got := fetcher.marked(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected b marked read, got %v", got)
	}
	if m.unread != 1 {
		t.Fatalf("expected 1 unread, got %d", m.unread)
	}

	press(t, m, runes("k"))
	press(t, m, runes("k"))
	if m.cursor != 0 {
		t.Fatalf("cursor should stop at 0, got %d", m.cursor)
	}
}

func TestSelectAllToggles(t *testing.T) {
	m, _ := newTestModel(t)

	press(t, m, runes("a"))
	if len(m.view.Selected()) != 3 {
		t.Fatalf("expected all selected, got %v", m.view.Selected())
	}
	if !strings.Contains(m.View(), "3 selected") {
		t.Fatal("expected selection count in status line")
	}
	press(t, m, runes("a"))
	if len(m.view.Selected()) != 0 {
		t.Fatalf("expected none selected, got %v", m.view.Selected())
	}
}

func TestTabCyclesFilters(t *testing.T) {
	m, fetcher := newTestModel(t)

	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.view.Filter() != types.FilterUnread {
		t.Fatalf("expected unread filter, got %s", m.view.Filter())
	}
	if fetcher.lastParams().Type != "" {
		t.Fatalf("unread must not be sent as a type, got %q", fetcher.lastParams().Type)
	}
	m.Update(storeChangedMsg{})
	if len(m.items) != 2 {
		t.Fatalf("expected 2 unread rows, got %d", len(m.items))
	}

	press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.view.Filter() != types.FilterLike || fetcher.lastParams().Type != types.NotificationLike {
		t.Fatalf("expected like filter, got %s / %q", m.view.Filter(), fetcher.lastParams().Type)
	}

	press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.view.Filter() != types.FilterAll {
		t.Fatalf("expected to wrap back to all, got %s", m.view.Filter())
	}
	press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.view.Filter() != types.FilterFollow {
		t.Fatalf("expected wrap to follow, got %s", m.view.Filter())
	}
}

func TestFailedActionShowsStatus(t *testing.T) {
	m, fetcher := newTestModel(t)
	fetcher.setMarkErr(errors.New("boom"))

	press(t, m, runes("r"))
	if m.unread != 2 {
		t.Fatalf("expected rollback to 2 unread, got %d", m.unread)
	}
	if !strings.Contains(m.View(), "mark read failed") {
		t.Fatalf("expected failure status, got:\n%s", m.View())
	}

	press(t, m, runes("n"))
	if m.status != "no more notifications" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestSessionErrorQuits(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(sessionErrMsg{err: api.ErrUnauthorized})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected quit message")
	}
	if !errors.Is(m.Err(), api.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", m.Err())
	}
}

func TestBridgeKeepsNewestSnapshot(t *testing.T) {
	m, _ := newTestModel(t)
	// Drain the signal left by the initial load.
	select {
	case <-m.changes:
	default:
	}

	m.bridge(store.Snapshot{Version: 1})
	m.bridge(store.Snapshot{Version: 2})
	m.bridge(store.Snapshot{Version: 3})

	msg := m.waitForChange()().(storeChangedMsg)
	if msg.snap.Version != 3 {
		t.Fatalf("expected newest snapshot, got %d", msg.snap.Version)
	}
	select {
	case snap := <-m.changes:
		t.Fatalf("expected one pending snapshot, found another %d", snap.Version)
	default:
	}
}

func TestSpinnerFollowsViewLoadState(t *testing.T) {
	m, fetcher := newTestModel(t)
	gate := make(chan struct{})
	fetcher.mu.Lock()
	fetcher.gate = gate
	fetcher.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- m.view.SetFilter(context.Background(), types.FilterUnread) }()

	deadline := time.Now().Add(5 * time.Second)
	for !m.view.State().Loading {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for load to start")
		}
		time.Sleep(time.Millisecond)
	}

	// A superseded load finishing must not hide the spinner of the one in flight.
	m.Update(actionDoneMsg{action: "load"})
	if !strings.Contains(m.View(), "loading") {
		t.Fatalf("expected spinner while a load is in flight:\n%s", m.View())
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("set filter: %v", err)
	}
	m.Update(actionDoneMsg{action: "load"})
	if strings.Contains(m.View(), "loading") {
		t.Fatalf("expected spinner gone after load:\n%s", m.View())
	}
}
