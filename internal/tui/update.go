package tui

import (
	"context"
	"errors"
	"slices"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/adamavenir/socialdash/internal/store"
	"github.com/adamavenir/socialdash/internal/types"
	"github.com/adamavenir/socialdash/internal/view"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type storeChangedMsg struct {
	snap store.Snapshot
}

type liveEventMsg struct {
	event types.Event
}

type sessionErrMsg struct {
	err error
}

type actionDoneMsg struct {
	action string
	err    error
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case storeChangedMsg:
		m.refresh()
		return m, m.waitForChange()
	case liveEventMsg:
		return m.handleLiveEvent(msg.event)
	case sessionErrMsg:
		m.fatal = msg.err
		m.status = "session ended: " + msg.err.Error()
		return m, tea.Quit
	case actionDoneMsg:
		return m.handleActionDone(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NextFilter):
		return m, m.switchFilter(1)
	case key.Matches(msg, m.keys.PrevFilter):
		return m, m.switchFilter(-1)
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Toggle):
		if rec, ok := m.current(); ok {
			m.view.Toggle(rec.ID)
		}
	case key.Matches(msg, m.keys.SelectAll):
		if len(m.items) > 0 && len(m.view.Selected()) == len(m.items) {
			m.view.DeselectAll()
		} else {
			m.view.SelectAll()
		}
	case key.Matches(msg, m.keys.MarkRead):
		rec, ok := m.current()
		if !ok || rec.IsRead {
			return m, nil
		}
		return m, m.actionCmd("mark read", func(ctx context.Context) error {
			return m.view.MarkRead(ctx, rec.ID)
		})
	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.actionCmd("mark all read", m.view.MarkAllRead)
	case key.Matches(msg, m.keys.Delete):
		rec, ok := m.current()
		if !ok {
			return m, nil
		}
		return m, m.actionCmd("delete", func(ctx context.Context) error {
			return m.view.Delete(ctx, rec.ID)
		})
	case key.Matches(msg, m.keys.BulkRead):
		return m, m.actionCmd("mark selected read", m.view.BulkMarkRead)
	case key.Matches(msg, m.keys.BulkDelete):
		return m, m.actionCmd("delete selected", m.view.BulkDelete)
	case key.Matches(msg, m.keys.LoadMore):
		if st := m.view.State(); st.Err != nil && st.Page == 0 {
			return m, m.actionCmd("load", m.view.Reload)
		}
		return m, m.actionCmd("load more", m.view.LoadMore)
	}
	return m, nil
}

func (m *Model) switchFilter(step int) tea.Cmd {
	idx := slices.Index(types.Filters, m.view.Filter())
	next := types.Filters[(idx+step+len(types.Filters))%len(types.Filters)]
	m.cursor = 0
	return m.actionCmd("load", func(ctx context.Context) error {
		return m.view.SetFilter(ctx, next)
	})
}

func (m *Model) handleLiveEvent(ev types.Event) (tea.Model, tea.Cmd) {
	switch ev.Kind {
	case types.EventDisconnected:
		if ev.Persistent {
			m.status = "live updates unavailable: " + ev.Reason
		}
	case types.EventConnected:
		m.status = ""
	}
	return m, m.waitForEvent()
}

func (m *Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	m.refresh()
	switch {
	case msg.err == nil:
		m.status = ""
	case errors.Is(msg.err, view.ErrNoMorePages):
		m.status = "no more notifications"
	case errors.Is(msg.err, view.ErrNoSelection):
		m.status = "nothing selected"
	case errors.Is(msg.err, view.ErrLoadInFlight):
	case errors.Is(msg.err, api.ErrUnauthorized):
		m.fatal = msg.err
		return m, tea.Quit
	default:
		m.status = msg.action + " failed: " + msg.err.Error()
		m.logf("%s failed: %v", msg.action, msg.err)
	}
	return m, nil
}

func (m *Model) actionCmd(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m *Model) waitForChange() tea.Cmd {
	changes := m.changes
	return func() tea.Msg {
		return storeChangedMsg{snap: <-changes}
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return liveEventMsg{event: ev}
	}
}

func (m *Model) waitForErr() tea.Cmd {
	if m.errs == nil {
		return nil
	}
	errs := m.errs
	return func() tea.Msg {
		err, ok := <-errs
		if !ok || err == nil {
			return nil
		}
		return sessionErrMsg{err: err}
	}
}
