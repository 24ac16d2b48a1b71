package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/genrefy/internal/formatter"
	"github.com/desertthunder/genrefy/internal/services"
	"github.com/desertthunder/genrefy/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistsList prints managed playlists as a table, CSV, Markdown or JSON.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	switch format {
	case "table", "csv", "markdown", "md", "json":
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	resp, err := r.api.Playlists(ctx)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		return r.writeJSON(resp, true)
	case "csv":
		data, err := formatter.PlaylistsCSV(resp.Playlists)
		if err != nil {
			return err
		}
		return r.writeBytes(data)
	case "markdown", "md":
		return r.writeBytes(formatter.PlaylistsMarkdown(resp.Playlists, resp.TotalSongs))
	}

	if len(resp.Playlists) == 0 {
		return r.writePlain("No managed playlists yet (run 'genrefy organize')\n")
	}
	return r.writeBytes(formatter.PlaylistsTable(resp.Playlists, resp.TotalSongs))
}

func playlistID(cmd *cli.Command) (string, error) {
	id := cmd.StringArg("id")
	if id == "" {
		return "", fmt.Errorf("%w: playlist id is required", shared.ErrMissingArgument)
	}
	return id, nil
}

// PlaylistsRefresh re-reads the live song count of one playlist.
func (r *Runner) PlaylistsRefresh(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistID(cmd)
	if err != nil {
		return err
	}

	count, err := r.api.Refresh(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to refresh playlist: %w", err)
	}
	return r.writePlain("✓ Playlist %s has %d songs\n", id, count)
}

// PlaylistsRebuild refills one playlist from the liked songs library.
func (r *Runner) PlaylistsRebuild(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistID(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("rebuilding playlist", "id", id)
	count, err := r.api.Rebuild(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to rebuild playlist: %w", err)
	}
	return r.writePlain("✓ Rebuilt %s with %d songs\n", id, count)
}

// PlaylistsUpdate sets the custom name and/or description. Only flags that were
// passed are sent, so an explicit empty value clears the override.
func (r *Runner) PlaylistsUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistID(cmd)
	if err != nil {
		return err
	}

	var patch services.PlaylistPatch
	if cmd.IsSet("name") {
		name := cmd.String("name")
		patch.CustomName = &name
	}
	if cmd.IsSet("description") {
		description := cmd.String("description")
		patch.CustomDescription = &description
	}
	if patch.CustomName == nil && patch.CustomDescription == nil {
		return fmt.Errorf("%w: pass --name and/or --description", shared.ErrMissingArgument)
	}

	warning, err := r.api.UpdatePlaylist(ctx, id, patch)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	if warning != "" {
		r.logger.Warn("playlist saved locally only", "id", id, "warning", warning)
		r.writePlain("⚠ %s\n", warning)
	}
	return r.writePlain("✓ Updated %s\n", id)
}

// PlaylistsDelete stops managing a playlist and unfollows it on Spotify.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := playlistID(cmd)
	if err != nil {
		return err
	}

	warning, err := r.api.DeletePlaylist(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if warning != "" {
		r.writePlain("⚠ %s\n", warning)
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// PlaylistsSyncAll refreshes the song count of every managed playlist.
func (r *Runner) PlaylistsSyncAll(ctx context.Context, cmd *cli.Command) error {
	result, err := r.api.SyncAll(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlain("✓ Synced %d playlists (%d songs)\n", result.PlaylistsUpdated, result.TotalSongs)
	if len(result.FailedPlaylists) > 0 {
		r.writePlain("✗ Failed: %s\n", strings.Join(result.FailedPlaylists, ", "))
	}
	return nil
}

// PlaylistsSyncStatus shows how many liked songs arrived since each playlist was synced.
func (r *Runner) PlaylistsSyncStatus(ctx context.Context, cmd *cli.Command) error {
	status, err := r.api.SyncStatus(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	names := map[string]string{}
	if len(status.Playlists) > 0 {
		resp, err := r.api.Playlists(ctx)
		if err != nil {
			r.logger.Warn("could not resolve playlist names", "error", err)
		} else {
			for _, p := range resp.Playlists {
				names[p.SpotifyID] = p.DisplayName()
			}
		}
	}
	return r.writeBytes(formatter.SyncStatusText(status, names))
}

// LibraryCount prints the number of liked songs.
func (r *Runner) LibraryCount(ctx context.Context, cmd *cli.Command) error {
	count, err := r.api.LibraryCount(ctx)
	if err != nil {
		return err
	}
	return r.writePlain("%d liked songs\n", count)
}
