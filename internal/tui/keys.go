package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextFilter  key.Binding
	PrevFilter  key.Binding
	Down        key.Binding
	Up          key.Binding
	Toggle      key.Binding
	SelectAll   key.Binding
	MarkRead    key.Binding
	MarkAllRead key.Binding
	Delete      key.Binding
	BulkRead    key.Binding
	BulkDelete  key.Binding
	LoadMore    key.Binding
	Quit        key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextFilter:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "filter")),
		PrevFilter:  key.NewBinding(key.WithKeys("shift+tab")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/k", "move")),
		Up:          key.NewBinding(key.WithKeys("k", "up")),
		Toggle:      key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "select")),
		SelectAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all/none")),
		MarkRead:    key.NewBinding(key.WithKeys("enter", "r"), key.WithHelp("r", "read")),
		MarkAllRead: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "read all")),
		Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		BulkRead:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "read selected")),
		BulkDelete:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete selected")),
		LoadMore:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "more")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextFilter, k.Down, k.Toggle, k.SelectAll, k.MarkRead, k.MarkAllRead,
		k.Delete, k.BulkRead, k.BulkDelete, k.LoadMore, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
