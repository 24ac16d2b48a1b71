// package formatter renders playlist names from user templates and formats organizer output
// for the terminal (plain text, CSV, Markdown)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/desertthunder/genrefy/internal/models"
)

// PlaylistsCSV converts managed playlists to CSV with columns: ID, Name, Genre, Songs, URL, Last Synced
func PlaylistsCSV(playlists []*models.ManagedPlaylist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Name", "Genre", "Songs", "URL", "Last Synced"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range playlists {
		row := []string{
			p.SpotifyID,
			p.DisplayName(),
			p.Genre,
			strconv.Itoa(p.SongCount),
			p.SpotifyURL,
			syncedString(p.LastSynced),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// PlaylistsMarkdown renders managed playlists as a Markdown table
func PlaylistsMarkdown(playlists []*models.ManagedPlaylist, totalSongs int) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Genre Playlists\n\n")
	fmt.Fprintf(&buf, "**Playlists**: %d\n", len(playlists))
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", totalSongs)

	buf.WriteString("| Genre | Name | Songs | Last Synced |\n")
	buf.WriteString("|---|---|---|---|\n")
	for _, p := range playlists {
		name := p.DisplayName()
		if p.SpotifyURL != "" {
			name = fmt.Sprintf("[%s](%s)", name, p.SpotifyURL)
		}
		fmt.Fprintf(&buf, "| %s | %s | %d | %s |\n", p.Genre, name, p.SongCount, syncedString(p.LastSynced))
	}
	return buf.Bytes()
}

// PlaylistsTable renders managed playlists as aligned plain text columns
func PlaylistsTable(playlists []*models.ManagedPlaylist, totalSongs int) []byte {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "ID\tGENRE\tNAME\tSONGS\tLAST SYNCED")
	for _, p := range playlists {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", p.SpotifyID, p.Genre, p.DisplayName(), p.SongCount, syncedString(p.LastSynced))
	}
	w.Flush()

	fmt.Fprintf(&buf, "\n%d playlists, %d songs\n", len(playlists), totalSongs)
	return buf.Bytes()
}

// ResultText summarizes a finished organize job
func ResultText(job models.Job) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Job: %s\n", job.ID)
	fmt.Fprintf(&buf, "Status: %s\n", job.Status)

	switch {
	case job.Status == models.JobFailed:
		fmt.Fprintf(&buf, "Failed during: %s\n", job.Stage)
		fmt.Fprintf(&buf, "Error: %s\n", job.Error)
		fmt.Fprintf(&buf, "Progress: %d/%d songs\n", job.SongsProcessed, job.TotalSongs)
	case job.Result != nil:
		fmt.Fprintf(&buf, "Songs: %d organized into %d playlists\n\n", job.Result.SongCount(), len(job.Result.Playlists))
		for i, p := range job.Result.Playlists {
			fmt.Fprintf(&buf, "%d. %s (%d songs)\n", i+1, p.Name, p.SongCount)
			if p.SpotifyURL != "" {
				fmt.Fprintf(&buf, "   %s\n", p.SpotifyURL)
			}
		}
	default:
		fmt.Fprintf(&buf, "Stage: %s (%d/%d songs)\n", job.Stage, job.SongsProcessed, job.TotalSongs)
		if len(job.GenresDiscovered) > 0 {
			fmt.Fprintf(&buf, "Genres: %d discovered\n", len(job.GenresDiscovered))
		}
	}
	return buf.Bytes()
}

// SyncStatusText summarizes pending library additions per playlist
func SyncStatusText(status *models.SyncStatus, names map[string]string) []byte {
	var buf bytes.Buffer

	if status.OldestSyncAt == nil {
		buf.WriteString("No playlists have been synced yet.\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "New songs since %s: %d\n", status.OldestSyncAt.Local().Format(time.DateTime), status.NewSongsCount)
	for _, p := range status.Playlists {
		label := names[p.SpotifyID]
		if label == "" {
			label = p.SpotifyID
		}
		fmt.Fprintf(&buf, "  %s [%s]: %d new\n", label, p.Genre, p.NewCount)
	}
	return buf.Bytes()
}

func syncedString(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Local().Format(time.DateTime)
}
