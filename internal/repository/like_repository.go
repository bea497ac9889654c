package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"monoforum/internal/models"
)

const (
	deleteLikeQuery = `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`
	insertLikeQuery = `
		INSERT INTO likes (like_id, post_id, user_id, created_at)
		VALUES (:like_id, :post_id, :user_id, :created_at)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`
	selectLikedPostIDsQuery = `SELECT post_id FROM likes WHERE user_id = $1 ORDER BY created_at DESC`
)

type likeRepository struct {
	db *sqlx.DB
}

func NewLikeRepository(db *sqlx.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Toggle flips the like of userID on postID and returns the new state.
//
// The row mutation and the posts.likes update share one transaction. The
// delete runs first so that only one of two concurrent unlikes sees the row;
// an insert that loses to a concurrent insert hits the (post_id, user_id)
// constraint, does nothing and reports the post as already liked without
// touching the counter.
func (r *likeRepository) Toggle(ctx context.Context, postID, userID string) (bool, error) {
	var liked bool

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, deleteLikeQuery, postID, userID)
		if err != nil {
			return fmt.Errorf("ошибка при удалении лайка: %w", err)
		}

		removed, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("ошибка при проверке удаленных строк: %w", err)
		}

		if removed > 0 {
			liked = false
			return adjustCounter(ctx, tx, likesCounter, postID, -1)
		}

		like := models.Like{
			LikeID:    uuid.New().String(),
			PostID:    postID,
			UserID:    userID,
			CreatedAt: time.Now(),
		}

		result, err = tx.NamedExecContext(ctx, insertLikeQuery, like)
		if err != nil {
			if pqCode(err) == pqForeignKeyViolation {
				return fmt.Errorf("пост с ID %s: %w", postID, ErrNotFound)
			}
			return fmt.Errorf("ошибка при создании лайка: %w", err)
		}

		inserted, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("ошибка при проверке добавленных строк: %w", err)
		}

		liked = true
		if inserted == 0 {
			return nil
		}

		return adjustCounter(ctx, tx, likesCounter, postID, 1)
	})
	if err != nil {
		return false, err
	}

	return liked, nil
}

func (r *likeRepository) GetLikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	postIDs := []string{}
	err := r.db.SelectContext(ctx, &postIDs, selectLikedPostIDsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении лайкнутых постов: %w", err)
	}

	return postIDs, nil
}
