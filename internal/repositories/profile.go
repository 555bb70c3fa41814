package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/models"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
)

// ProfileRepository implements [models.ProfileStore] on the profiles table.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new [ProfileRepository] with the given database connection
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Save replaces any cached profile with profile, assigning an ID if it has none.
func (r *ProfileRepository) Save(ctx context.Context, profile *models.Profile) error {
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if profile.ID == "" {
		profile.ID = shared.GenerateID()
	}
	if profile.FetchedAt.IsZero() {
		profile.FetchedAt = time.Now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
		return fmt.Errorf("failed to clear profiles: %w", err)
	}

	query := `
		INSERT INTO profiles (id, user_id, email, name, role, raw, fetched_at) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		profile.ID, profile.Key(), profile.Email, profile.Name, profile.Role, string(profile.Raw), profile.FetchedAt)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile: %w", err)
	}
	return nil
}

// Get returns the most recently fetched profile.
func (r *ProfileRepository) Get(ctx context.Context) (*models.Profile, error) {
	query := `
		SELECT id, user_id, email, name, role, raw, fetched_at
		FROM profiles
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	var (
		p   models.Profile
		raw string
	)
	err := r.db.QueryRowContext(ctx, query).Scan(&p.ID, &p.UserID, &p.Email, &p.Name, &p.Role, &raw, &p.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	p.Raw = []byte(raw)
	return &p, nil
}

// Delete removes the profile with the given ID.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if err := affected(result, "profile "+id); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrProfileNotFound, err)
	}
	return nil
}

// Clear removes every cached profile. It implements session.LocalState.
func (r *ProfileRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles`); err != nil {
		return fmt.Errorf("failed to clear profiles: %w", err)
	}
	return nil
}
