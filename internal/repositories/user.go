package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/genrefy/internal/models"
	"github.com/desertthunder/genrefy/internal/shared"
)

const userColumns = `id, sequence, display_name, email, product, created_at, updated_at, deleted_at`

// UserRepository implements [models.Repository] for user [models.User] persistence.
type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new user keyed by its Spotify id
func (r *UserRepository) Create(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	user.SetSequence(sequence)
	user.Touch(r.now())

	query := `
		INSERT INTO users (id, sequence, display_name, email, product, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, user.SpotifyID, sequence, user.DisplayName, user.Email, user.Product,
		user.CreatedAt(), user.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ? AND deleted_at IS NULL`

	user, err := r.scan(r.db.QueryRow(query, id))
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return user, nil
}

// Update modifies an existing user's profile columns
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	user.Touch(r.now())

	query := `
		UPDATE users
		SET display_name = ?, email = ?, product = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, user.DisplayName, user.Email, user.Product, user.UpdatedAt(), user.SpotifyID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireAffected(result, "user", user.SpotifyID)
}

// Upsert stores the profile returned at login, reviving a soft-deleted account.
func (r *UserRepository) Upsert(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	result, err := r.db.Exec(`
		UPDATE users
		SET display_name = ?, email = ?, product = ?, updated_at = ?, deleted_at = NULL
		WHERE id = ?
	`, user.DisplayName, user.Email, user.Product, r.now(), user.SpotifyID)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		return nil
	}
	return r.Create(user)
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(result, "user", id)
}

// List retrieves all users matching the given criteria (email, product), excluding soft-deleted users
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL`
	args := []any{}

	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}

	if product, ok := criteria["product"].(string); ok && product != "" {
		query += " AND product = ?"
		args = append(args, product)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return users, nil
}

func (r *UserRepository) scan(row scanner) (*models.User, error) {
	var (
		user      models.User
		sequence  int
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&user.SpotifyID, &sequence, &user.DisplayName, &user.Email, &user.Product,
		&createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	user.SetSequence(sequence)
	user.SetTimestamps(createdAt, updatedAt, timePtr(deletedAt))
	return &user, nil
}
