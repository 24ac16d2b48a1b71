package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
)

const playlistColumns = `spotify_id, sequence, user_id, name, genre, song_count, spotify_url,
	custom_name, custom_description, last_synced_at, created_at, updated_at, deleted_at`

// PlaylistRepository implements models.Repository[*models.ManagedPlaylist] and is the
// organizer's playlist store.
//
// Handles playlist CRUD operations with soft delete support, genre lookups and the
// single-statement sync writes used by the reconciler.
type PlaylistRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new managed playlist with a generated sequence
func (r *PlaylistRepository) Create(p *models.ManagedPlaylist) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	sequence, err := NextSequence(r.db, "managed_playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	p.SetSequence(sequence)
	p.Touch(r.now())

	query := `
		INSERT INTO managed_playlists (` + playlistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		p.SpotifyID,
		sequence,
		p.UserID,
		p.Name,
		p.Genre,
		p.SongCount,
		p.SpotifyURL,
		nullString(p.CustomName),
		nullString(p.CustomDescription),
		nullTime(p.LastSynced),
		p.CreatedAt(),
		p.UpdatedAt(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: playlist %s already exists", shared.ErrConflict, p.SpotifyID)
		}
		return fmt.Errorf("failed to insert playlist: %w", err)
	}
	return nil
}

// Get retrieves a managed playlist by its Spotify id, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.ManagedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM managed_playlists WHERE spotify_id = ? AND deleted_at IS NULL`

	p, err := r.scan(r.db.QueryRow(query, id))
	if err != nil {
		return nil, notFound(err, "playlist", id)
	}
	return p, nil
}

// Update writes every mutable column of an existing playlist
func (r *PlaylistRepository) Update(p *models.ManagedPlaylist) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	p.Touch(r.now())

	query := `
		UPDATE managed_playlists
		SET name = ?, genre = ?, song_count = ?, spotify_url = ?, custom_name = ?,
			custom_description = ?, last_synced_at = ?, updated_at = ?
		WHERE spotify_id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		p.Name,
		p.Genre,
		p.SongCount,
		p.SpotifyURL,
		nullString(p.CustomName),
		nullString(p.CustomDescription),
		nullTime(p.LastSynced),
		p.UpdatedAt(),
		p.SpotifyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	return requireAffected(result, "playlist", p.SpotifyID)
}

// Upsert records the organizer-owned columns of p, creating the row if needed.
//
// Custom overrides already stored are preserved and a soft-deleted row is revived.
func (r *PlaylistRepository) Upsert(p *models.ManagedPlaylist) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	query := `
		UPDATE managed_playlists
		SET user_id = ?, name = ?, genre = ?, song_count = ?, spotify_url = ?,
			last_synced_at = ?, updated_at = ?, deleted_at = NULL
		WHERE spotify_id = ?
	`

	result, err := r.db.Exec(query,
		p.UserID,
		p.Name,
		p.Genre,
		p.SongCount,
		p.SpotifyURL,
		nullTime(p.LastSynced),
		r.now(),
		p.SpotifyID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert playlist: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		return nil
	}
	return r.Create(p)
}

// Delete soft-deletes a managed playlist
func (r *PlaylistRepository) Delete(id string) error {
	result, err := r.db.Exec(
		`UPDATE managed_playlists SET deleted_at = ? WHERE spotify_id = ? AND deleted_at IS NULL`,
		r.now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	return requireAffected(result, "playlist", id)
}

// List retrieves playlists matching the given criteria (user_id, genre), oldest first
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.ManagedPlaylist, error) {
	query := `SELECT ` + playlistColumns + ` FROM managed_playlists WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if genre, ok := criteria["genre"].(string); ok && genre != "" {
		query += " AND genre = ?"
		args = append(args, genre)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []*models.ManagedPlaylist{}
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return playlists, nil
}

// ListByUser returns every live playlist owned by userID
func (r *PlaylistRepository) ListByUser(userID string) ([]*models.ManagedPlaylist, error) {
	return r.List(map[string]any{"user_id": userID})
}

// FindByGenre returns the most recently created live playlist for the user's genre
func (r *PlaylistRepository) FindByGenre(userID, genre string) (*models.ManagedPlaylist, error) {
	query := `
		SELECT ` + playlistColumns + ` FROM managed_playlists
		WHERE user_id = ? AND genre = ? AND deleted_at IS NULL
		ORDER BY sequence DESC LIMIT 1
	`

	p, err := r.scan(r.db.QueryRow(query, userID, genre))
	if err != nil {
		return nil, notFound(err, "playlist for genre", genre)
	}
	return p, nil
}

// RecordSync sets song_count and last_synced in one statement
func (r *PlaylistRepository) RecordSync(id string, songCount int, at time.Time) error {
	result, err := r.db.Exec(`
		UPDATE managed_playlists SET song_count = ?, last_synced_at = ?, updated_at = ?
		WHERE spotify_id = ? AND deleted_at IS NULL
	`, songCount, at.UTC(), r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to record sync: %w", err)
	}
	return requireAffected(result, "playlist", id)
}

// SetOverrides updates the custom name and/or description. Nil leaves a field unchanged
// and an empty string clears it.
func (r *PlaylistRepository) SetOverrides(id string, name, description *string) error {
	sets := []string{"updated_at = ?"}
	args := []any{r.now()}

	for _, f := range []struct {
		column string
		value  *string
	}{{"custom_name", name}, {"custom_description", description}} {
		if f.value == nil {
			continue
		}
		sets = append(sets, f.column+" = ?")
		if *f.value == "" {
			args = append(args, nil)
		} else {
			args = append(args, *f.value)
		}
	}

	args = append(args, id)
	result, err := r.db.Exec(
		"UPDATE managed_playlists SET "+strings.Join(sets, ", ")+" WHERE spotify_id = ? AND deleted_at IS NULL",
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to set playlist overrides: %w", err)
	}
	return requireAffected(result, "playlist", id)
}

func (r *PlaylistRepository) scan(row scanner) (*models.ManagedPlaylist, error) {
	var (
		p          models.ManagedPlaylist
		sequence   int
		customName sql.NullString
		customDesc sql.NullString
		lastSynced sql.NullTime
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&p.SpotifyID, &sequence, &p.UserID, &p.Name, &p.Genre, &p.SongCount, &p.SpotifyURL,
		&customName, &customDesc, &lastSynced, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	p.SetSequence(sequence)
	p.CustomName = stringPtr(customName)
	p.CustomDescription = stringPtr(customDesc)
	p.LastSynced = timePtr(lastSynced)
	p.SetTimestamps(createdAt, updatedAt, timePtr(deletedAt))
	return &p, nil
}
