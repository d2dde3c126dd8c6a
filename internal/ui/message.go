package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/tasks"
)

// MsgKind enumerates all message types in the application.
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
	MsgLibrariesFetched MsgKind = iota
	MsgProgressUpdate
	MsgWrappedComplete
)

type librariesFetched struct {
	libraries []models.MusicLibrary
	err       error
}

type wrappedComplete struct {
	result *tasks.WrappedResult
	err    error
}

// librariesFetchedMsg is the constructor for [MsgLibrariesFetched]
func librariesFetchedMsg(libraries []models.MusicLibrary, err error) Msg {
	return Msg{kind: MsgLibrariesFetched, data: librariesFetched{libraries, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// wrappedCompleteMsg is the constructor for [MsgWrappedComplete]
func wrappedCompleteMsg(result *tasks.WrappedResult, err error) Msg {
	return Msg{kind: MsgWrappedComplete, data: wrappedComplete{result, err}}
}
