package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
)

const jobColumns = `id, sequence, user_id, status, stage, playlist_count, replace_existing, total_songs,
	songs_processed, playlists_created, error_message, created_at, finished_at, deleted_at`

// JobRepository implements models.Repository[*models.JobRecord] for organize history.
//
// Only terminal jobs are written; live progress stays in memory.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a finished job with a generated sequence
func (r *JobRepository) Create(job *models.JobRecord) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	sequence, err := NextSequence(r.db, "job_history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	job.SetSequence(sequence)

	query := `
		INSERT INTO job_history (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		job.JobID,
		sequence,
		job.UserID,
		job.Status,
		job.Stage,
		job.PlaylistCount,
		job.ReplaceExisting,
		job.TotalSongs,
		job.SongsProcessed,
		job.PlaylistsCreated,
		errorMessage(job.Error),
		job.CreatedAt().UTC(),
		job.FinishedAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: job %s already recorded", shared.ErrConflict, job.JobID)
		}
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// RecordJob summarizes and stores a terminal job.
func (r *JobRepository) RecordJob(userID string, job models.Job) error {
	return r.Create(models.NewJobRecord(userID, job))
}

// Get retrieves a job record by ID, excluding soft-deleted records
func (r *JobRepository) Get(id string) (*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM job_history WHERE id = ? AND deleted_at IS NULL`

	job, err := r.scan(r.db.QueryRow(query, id))
	if err != nil {
		return nil, notFound(err, "job", id)
	}
	return job, nil
}

// Update rewrites the outcome columns of a recorded job
func (r *JobRepository) Update(job *models.JobRecord) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	query := `
		UPDATE job_history
		SET status = ?, stage = ?, total_songs = ?, songs_processed = ?,
			playlists_created = ?, error_message = ?, finished_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		job.Status,
		job.Stage,
		job.TotalSongs,
		job.SongsProcessed,
		job.PlaylistsCreated,
		errorMessage(job.Error),
		job.FinishedAt.UTC(),
		job.JobID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return requireAffected(result, "job", job.JobID)
}

// Delete soft-deletes a job record by ID
func (r *JobRepository) Delete(id string) error {
	result, err := r.db.Exec(
		`UPDATE job_history SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return requireAffected(result, "job", id)
}

// List retrieves job records matching the given criteria (user_id, status, limit), newest first
func (r *JobRepository) List(criteria map[string]any) ([]*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM job_history WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	switch status := criteria["status"].(type) {
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	case models.JobStatus:
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.JobRecord{}
	for rows.Next() {
		job, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

// ListByUser returns at most limit records for userID, newest first
func (r *JobRepository) ListByUser(userID string, limit int) ([]*models.JobRecord, error) {
	return r.List(map[string]any{"user_id": userID, "limit": limit})
}

func (r *JobRepository) scan(row scanner) (*models.JobRecord, error) {
	var (
		job        models.JobRecord
		sequence   int
		errMessage sql.NullString
		createdAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(
		&job.JobID, &sequence, &job.UserID, &job.Status, &job.Stage, &job.PlaylistCount,
		&job.ReplaceExisting, &job.TotalSongs, &job.SongsProcessed, &job.PlaylistsCreated,
		&errMessage, &createdAt, &job.FinishedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	job.SetSequence(sequence)
	job.Error = errMessage.String
	job.SetTimestamps(createdAt, job.FinishedAt, timePtr(deletedAt))
	return &job, nil
}

func errorMessage(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
