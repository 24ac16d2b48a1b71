package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
	"golang.org/x/oauth2"
)

const sessionColumns = `id, user_id, access_token, refresh_token, token_type, expiry, created_at, updated_at`

// SessionRepository implements [models.Repository] for login sessions.
//
// Sessions are hard-deleted on logout; there is no history worth keeping for a revoked token.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create stores a new session
func (r *SessionRepository) Create(s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	s.Touch(r.now())

	query := `INSERT INTO sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query, s.SessionID, s.UserID, s.AccessToken, s.RefreshToken, s.TokenType,
		expiry(s.Expiry), s.CreatedAt(), s.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by its opaque id
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	s, err := r.scan(r.db.QueryRow(query, id))
	if err != nil {
		return nil, notFound(err, "session", id)
	}
	return s, nil
}

// Update rewrites the token columns of a session
func (r *SessionRepository) Update(s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	s.Touch(r.now())

	result, err := r.db.Exec(`
		UPDATE sessions
		SET access_token = ?, refresh_token = ?, token_type = ?, expiry = ?, updated_at = ?
		WHERE id = ?
	`, s.AccessToken, s.RefreshToken, s.TokenType, expiry(s.Expiry), s.UpdatedAt(), s.SessionID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return requireAffected(result, "session", s.SessionID)
}

// UpdateToken stores a refreshed OAuth token. An empty refresh token keeps the stored one.
func (r *SessionRepository) UpdateToken(id string, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: access token is required", shared.ErrInvalidArgument)
	}

	result, err := r.db.Exec(`
		UPDATE sessions
		SET access_token = ?,
			refresh_token = CASE WHEN ? = '' THEN refresh_token ELSE ? END,
			token_type = ?, expiry = ?, updated_at = ?
		WHERE id = ?
	`, token.AccessToken, token.RefreshToken, token.RefreshToken, tokenType(token), expiry(token.Expiry), r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update session token: %w", err)
	}
	return requireAffected(result, "session", id)
}

// Delete removes a session
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return requireAffected(result, "session", id)
}

// List retrieves sessions matching the given criteria (user_id), newest first
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) scan(row scanner) (*models.Session, error) {
	var (
		s         models.Session
		exp       sql.NullTime
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&s.SessionID, &s.UserID, &s.AccessToken, &s.RefreshToken, &s.TokenType,
		&exp, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if exp.Valid {
		s.Expiry = exp.Time
	}
	s.SetTimestamps(createdAt, updatedAt, nil)
	return &s, nil
}

func expiry(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func tokenType(token *oauth2.Token) string {
	if token.TokenType == "" {
		return "Bearer"
	}
	return token.TokenType
}
