package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrNotFound           = errors.New("запись не найдена")
	ErrForbidden          = errors.New("доступ запрещен")
	ErrAlreadyExists      = errors.New("запись уже существует")
	ErrInvalidCredentials = errors.New("неверный email или пароль")
)

const (
	pqUniqueViolation     pq.ErrorCode = "23505"
	pqForeignKeyViolation pq.ErrorCode = "23503"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// withTx commits when fn returns nil and rolls back otherwise.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка при открытии транзакции: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ошибка при фиксации транзакции: %w", err)
	}

	return nil
}

type counterColumn string

const (
	likesCounter    counterColumn = "likes"
	commentsCounter counterColumn = "comments"
)

func counterQuery(column counterColumn) string {
	return fmt.Sprintf(`UPDATE posts SET %[1]s = GREATEST(%[1]s + $1, 0) WHERE post_id = $2`, column)
}

// adjustCounter applies delta to a post counter. The store floors the value
// at zero so concurrent decrements cannot underflow.
func adjustCounter(ctx context.Context, tx *sqlx.Tx, column counterColumn, postID string, delta int) error {
	result, err := tx.ExecContext(ctx, counterQuery(column), delta, postID)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении счетчика %s: %w", column, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка при проверке обновленных строк: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("пост с ID %s: %w", postID, ErrNotFound)
	}

	return nil
}
