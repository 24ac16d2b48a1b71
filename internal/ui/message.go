package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genrefy/internal/models"
)

// MsgKind enumerates all message types in the watcher.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgJobPolled MsgKind = iota
	MsgPollDue
	MsgOpened
)

type polled struct {
	job *models.Job
	err error
}

// jobPolledMsg is the constructor for [MsgJobPolled]
func jobPolledMsg(job *models.Job, err error) Msg {
	return Msg{kind: MsgJobPolled, data: polled{job, err}}
}

// pollDueMsg is the constructor for [MsgPollDue]
func pollDueMsg() Msg {
	return Msg{kind: MsgPollDue}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(err error) Msg {
	return Msg{kind: MsgOpened, data: err}
}
