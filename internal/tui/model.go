// Package tui is the terminal notification dashboard.
package tui

import (
	"context"
	"log"

	"github.com/adamavenir/socialdash/internal/session"
	"github.com/adamavenir/socialdash/internal/store"
	"github.com/adamavenir/socialdash/internal/types"
	"github.com/adamavenir/socialdash/internal/view"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Options configure the dashboard.
type Options struct {
	Store *store.Store
	View  *view.View
	// Live reports the live channel state. Nil renders the channel offline.
	Live func() types.ConnState
	// Events and Errs are the session feeds; both are optional.
	Events <-chan types.Event
	Errs   <-chan error
	Title  string
	Logger *log.Logger
}

// Run shows the dashboard for sess until the user quits or the session
// ends. It returns the error that ended the session, if any.
func Run(ctx context.Context, sess *session.Session, title string, logger *log.Logger) error {
	model := NewModel(ctx, Options{
		Store:  sess.Store(),
		View:   sess.View(),
		Live:   sess.ConnState,
		Events: sess.Events(),
		Errs:   sess.Err(),
		Title:  title,
		Logger: logger,
	})
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return err
	}
	return model.fatal
}

// Model implements the dashboard.
type Model struct {
	ctx    context.Context
	store  *store.Store
	view   *view.View
	live   func() types.ConnState
	events <-chan types.Event
	errs   <-chan error
	title  string
	logger *log.Logger

	// changes carries store change signals from the subscription to Update.
	changes     chan store.Snapshot
	unsubscribe func()

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	items  []types.Notification
	cursor int
	unread int
	width  int
	height int
	status string
	fatal  error
}

// NewModel builds the dashboard and subscribes it to store changes.
func NewModel(ctx context.Context, opts Options) *Model {
	title := opts.Title
	if title == "" {
		title = "SocialDash"
	}
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	m := &Model{
		ctx:     ctx,
		store:   opts.Store,
		view:    opts.View,
		live:    opts.Live,
		events:  opts.Events,
		errs:    opts.Errs,
		title:   title,
		logger:  opts.Logger,
		changes: make(chan store.Snapshot, 1),
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
	}
	m.unsubscribe = opts.Store.Subscribe(m.bridge)
	m.refresh()
	return m
}

// bridge runs on the store's writer goroutine; it only keeps the newest
// snapshot pending for Update.
func (m *Model) bridge(snap store.Snapshot) {
	select {
	case m.changes <- snap:
	default:
		select {
		case <-m.changes:
		default:
		}
		select {
		case m.changes <- snap:
		default:
		}
	}
}

// Close removes the store subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Err returns the session failure that ended the dashboard, if any.
func (m *Model) Err() error {
	return m.fatal
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.actionCmd("load", func(ctx context.Context) error {
			return m.view.SetFilter(ctx, m.view.Filter())
		}),
		m.waitForChange(),
		m.waitForEvent(),
		m.waitForErr(),
		m.spinner.Tick,
	)
}

// refresh re-reads the projection and clamps the cursor.
func (m *Model) refresh() {
	m.items = m.view.Items()
	m.unread = m.store.UnreadCount()
	if m.cursor >= len(m.items) {
		m.cursor = len(m.items) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) current() (types.Notification, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return types.Notification{}, false
	}
	return m.items[m.cursor], true
}

func (m *Model) connState() types.ConnState {
	if m.live == nil {
		return types.StateIdle
	}
	return m.live()
}

func (m *Model) logf(format string, args ...any) {
	if m.logger == nil {
		return
	}
	m.logger.Printf(format, args...)
}
