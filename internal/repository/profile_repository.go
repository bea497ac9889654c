package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"monoforum/internal/models"
)

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// Create stores the profile under the owner's user id. A taken username is
// reported as ErrAlreadyExists.
func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (id, username, avatar_url, bio, created_at)
		VALUES (:id, :username, :avatar_url, :bio, :created_at)
	`

	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}

	_, err := r.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		switch pqCode(err) {
		case pqUniqueViolation:
			return fmt.Errorf("профиль или имя пользователя %s: %w", profile.Username, ErrAlreadyExists)
		case pqForeignKeyViolation:
			return fmt.Errorf("пользователь с ID %s: %w", profile.ID, ErrNotFound)
		}
		return fmt.Errorf("ошибка при создании профиля: %w", err)
	}

	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile

	query := `SELECT * FROM profiles WHERE id = $1`

	err := r.db.GetContext(ctx, &profile, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("профиль с ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка при получении профиля: %w", err)
	}

	return &profile, nil
}

// Update rewrites the mutable profile fields. The WHERE clause is keyed by the
// owner id, so a caller can only ever touch its own row.
func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	query := `
		UPDATE profiles
		SET username = :username, avatar_url = :avatar_url, bio = :bio
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return fmt.Errorf("имя пользователя %s: %w", profile.Username, ErrAlreadyExists)
		}
		return fmt.Errorf("ошибка при обновлении профиля: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("профиль с ID %s: %w", profile.ID, ErrNotFound)
	}

	return nil
}
