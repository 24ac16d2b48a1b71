package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the watcher.
type keyMap struct {
	genres key.Binding
	open   key.Binding
	help   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		genres: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "genres")),
		open:   key.NewBinding(key.WithKeys("enter", "o"), key.WithHelp("enter", "open in spotify")),
		help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.genres, k.open},
		{k.help, k.quit},
	}
}
