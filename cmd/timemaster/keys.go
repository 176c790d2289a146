package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Prev      key.Binding
	Next      key.Binding
	Jump      key.Binding
	Start     key.Binding
	Stop      key.Binding
	Lap       key.Binding
	Reset     key.Binding
	Edit      key.Binding
	Field     key.Binding
	Done      key.Binding
	Theme     key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view. It's part of the key.Map interface
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Start, k.Stop, k.Reset, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view. It's part of the key.Map interface
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.Jump},
		{k.Start, k.Stop, k.Lap, k.Reset},
		{k.Edit, k.Field, k.Done},
		{k.Theme, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Prev: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "previous tab"),
	),
	Next: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "next tab"),
	),
	Jump: key.NewBinding(
		key.WithKeys("1", "2", "3", "4"),
		key.WithHelp("1-4", "go to tab"),
	),
	Start: key.NewBinding(
		key.WithKeys("s", " "),
		key.WithHelp("s/space", "start"),
	),
	Stop: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "stop/pause"),
	),
	Lap: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "lap"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit timer"),
	),
	Field: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	Done: key.NewBinding(
		key.WithKeys("enter", "esc"),
		key.WithHelp("enter/esc", "finish editing"),
	),
	Theme: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "toggle theme"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more keys"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
}
