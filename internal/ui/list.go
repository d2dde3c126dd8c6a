package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/plexwrapped/internal/models"
	"github.com/desertthunder/plexwrapped/internal/shared"
)

var (
	_ list.Item = libraryItem{}
	_ list.Item = playItem{}
)

// libraryItem wraps [models.MusicLibrary] to implement [list.Item].
type libraryItem struct {
	library models.MusicLibrary
}

func (i libraryItem) FilterValue() string { return i.library.Library.Title }
func (i libraryItem) Title() string       { return i.library.Library.Title }
func (i libraryItem) Description() string {
	desc := i.library.Server.Name
	if i.library.Server.Owned {
		desc = fmt.Sprintf("%s • owned", desc)
	}
	return desc
}

// playItem wraps [models.PlayRecord] to implement [list.Item].
type playItem struct {
	record models.PlayRecord
}

func (i playItem) FilterValue() string { return i.record.Title }
func (i playItem) Title() string       { return i.record.Title }
func (i playItem) Description() string {
	desc := i.record.GrandparentTitle
	if i.record.ParentTitle != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.record.ParentTitle)
	}
	return fmt.Sprintf("%s • %s", desc, shared.FormatTimestamp(i.record.ViewedAt))
}
