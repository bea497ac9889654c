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
	insertPostQuery = `
        INSERT INTO posts
        (post_id, user_id, content, image_url, likes, comments, username, avatar_url, created_at)
        VALUES
        (:post_id, :user_id, :content, :image_url, :likes, :comments, :username, :avatar_url, :created_at)
    `
	selectPostByIDQuery = `SELECT * FROM posts WHERE post_id = $1`
	selectPostsQuery    = `SELECT * FROM posts ORDER BY created_at DESC, post_id DESC`
)

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts a post with zeroed counters.
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if post.PostID == "" {
		post.PostID = uuid.New().String()
	}

	post.Likes = 0
	post.Comments = 0
	post.CreatedAt = time.Now()

	_, err := r.db.NamedExecContext(ctx, insertPostQuery, post)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return fmt.Errorf("профиль автора %s: %w", post.UserID, ErrNotFound)
		}
		return fmt.Errorf("ошибка при создании поста: %w", err)
	}

	return nil
}

func (r *postRepository) GetByID(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.GetContext(ctx, &post, selectPostByIDQuery, postID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("пост с ID %s: %w", postID, ErrNotFound)
		}
		return nil, fmt.Errorf("ошибка при получении поста: %w", err)
	}

	return &post, nil
}

// GetAll returns the feed, newest first.
func (r *postRepository) GetAll(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	err := r.db.SelectContext(ctx, &posts, selectPostsQuery)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении постов: %w", err)
	}

	return posts, nil
}
