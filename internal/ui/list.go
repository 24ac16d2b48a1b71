package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/genrefy/internal/models"
)

var _ list.Item = playlistItem{}

// playlistItem wraps [models.PlaylistSummary] to implement [list.Item].
type playlistItem struct {
	playlist models.PlaylistSummary
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d songs", i.playlist.SongCount)
	if i.playlist.Genre != "" && i.playlist.Genre != i.playlist.Name {
		desc = fmt.Sprintf("%s • %s", desc, i.playlist.Genre)
	}
	return desc
}

func playlistItems(result *models.OrganizeResult) []list.Item {
	if result == nil {
		return nil
	}
	items := make([]list.Item, len(result.Playlists))
	for i, p := range result.Playlists {
		items[i] = playlistItem{playlist: p}
	}
	return items
}
