package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"monoforum/internal/models"
)

const (
	insertCommentQuery = `
		INSERT INTO comments (comment_id, post_id, user_id, content, username, avatar_url, created_at)
		VALUES (:comment_id, :post_id, :user_id, :content, :username, :avatar_url, :created_at)
	`
	selectCommentsQuery     = `SELECT * FROM comments WHERE post_id = $1 ORDER BY created_at ASC, comment_id ASC`
	deleteOwnCommentQuery   = `DELETE FROM comments WHERE comment_id = $1 AND post_id = $2 AND user_id = $3`
	selectCommentOwnerQuery = `SELECT user_id FROM comments WHERE comment_id = $1 AND post_id = $2`
)

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

// Create inserts the comment and bumps posts.comments in the same transaction.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if comment.CommentID == "" {
		comment.CommentID = uuid.New().String()
	}
	comment.CreatedAt = time.Now()

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, insertCommentQuery, comment)
		if err != nil {
			if pqCode(err) == pqForeignKeyViolation {
				return fmt.Errorf("пост с ID %s: %w", comment.PostID, ErrNotFound)
			}
			return fmt.Errorf("ошибка при создании комментария: %w", err)
		}

		return adjustCounter(ctx, tx, commentsCounter, comment.PostID, 1)
	})
}

// GetByPostID returns the comments of a post, oldest first.
func (r *commentRepository) GetByPostID(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := r.db.SelectContext(ctx, &comments, selectCommentsQuery, postID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении комментариев: %w", err)
	}

	return comments, nil
}

// Delete removes a comment owned by callerID and decrements posts.comments.
// A comment that exists but belongs to someone else yields ErrForbidden.
func (r *commentRepository) Delete(ctx context.Context, commentID, postID, callerID string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, deleteOwnCommentQuery, commentID, postID, callerID)
		if err != nil {
			return fmt.Errorf("ошибка при удалении комментария: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("ошибка при проверке удаленных строк: %w", err)
		}

		if rowsAffected == 0 {
			var ownerID string
			err := tx.GetContext(ctx, &ownerID, selectCommentOwnerQuery, commentID, postID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("комментарий с ID %s: %w", commentID, ErrNotFound)
				}
				return fmt.Errorf("ошибка при получении комментария: %w", err)
			}
			return fmt.Errorf("комментарий с ID %s: %w", commentID, ErrForbidden)
		}

		return adjustCounter(ctx, tx, commentsCounter, postID, -1)
	})
}
