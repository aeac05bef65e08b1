package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dot5enko/virtual-grid/edit"
)

type gridKeyMap struct {
	Quit        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Home        key.Binding
	End         key.Binding
	Sort        key.Binding
	Hide        key.Binding
	ShowAll     key.Binding
	Wider       key.Binding
	Narrower    key.Binding
	MoveLeft    key.Binding
	MoveRight   key.Binding
	Retry       key.Binding
	RetryLayout key.Binding
}

var gridKeys = gridKeyMap{
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Home:        key.NewBinding(key.WithKeys("home", "ctrl+home"), key.WithHelp("home", "first row")),
	End:         key.NewBinding(key.WithKeys("end", "ctrl+end"), key.WithHelp("end", "last row")),
	Sort:        key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("^s", "sort by column")),
	Hide:        key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("^x", "hide column")),
	ShowAll:     key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("^a", "show all columns")),
	Wider:       key.NewBinding(key.WithKeys("ctrl+right"), key.WithHelp("^→", "wider")),
	Narrower:    key.NewBinding(key.WithKeys("ctrl+left"), key.WithHelp("^←", "narrower")),
	MoveLeft:    key.NewBinding(key.WithKeys("shift+left"), key.WithHelp("⇧←", "move column left")),
	MoveRight:   key.NewBinding(key.WithKeys("shift+right"), key.WithHelp("⇧→", "move column right")),
	Retry:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("^r", "retry fetch")),
	RetryLayout: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("^l", "retry layout save")),
}

func (k gridKeyMap) help() []key.Binding {
	return []key.Binding{k.Quit, k.Sort, k.Hide, k.ShowAll, k.Wider, k.Narrower, k.MoveLeft, k.MoveRight, k.Retry}
}

// translateKey maps a terminal key to an edit controller key.
func translateKey(msg tea.KeyMsg) (edit.Key, bool) {
	switch msg.Type {
	case tea.KeyUp:
		return edit.Key{Kind: edit.KeyUp}, true
	case tea.KeyDown:
		return edit.Key{Kind: edit.KeyDown}, true
	case tea.KeyLeft:
		return edit.Key{Kind: edit.KeyLeft}, true
	case tea.KeyRight:
		return edit.Key{Kind: edit.KeyRight}, true
	case tea.KeyTab:
		return edit.Key{Kind: edit.KeyTab}, true
	case tea.KeyShiftTab:
		return edit.Key{Kind: edit.KeyShiftTab}, true
	case tea.KeyEnter:
		return edit.Key{Kind: edit.KeyEnter}, true
	case tea.KeyEsc:
		return edit.Key{Kind: edit.KeyEscape}, true
	case tea.KeyBackspace:
		return edit.Key{Kind: edit.KeyBackspace}, true
	case tea.KeySpace:
		return edit.RuneKey(' '), true
	case tea.KeyRunes:
		if len(msg.Runes) == 1 && !msg.Alt {
			return edit.RuneKey(msg.Runes[0]), true
		}
	}
	return edit.Key{}, false
}
