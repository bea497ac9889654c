package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monoforum/internal/models"
)

var commentColumns = []string{"comment_id", "post_id", "user_id", "content", "username", "avatar_url", "created_at"}

func TestCommentRepository_Create(t *testing.T) {
	ctx := context.Background()
	commentsUpdate := regexp.QuoteMeta(counterQuery(commentsCounter))

	t.Run("Комментарий создается и счетчик увеличивается", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewCommentRepository(db)

		comment := &models.Comment{PostID: "post-1", UserID: "user-1", Content: "hi", Username: "ada"}

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO comments`).
			WithArgs(sqlmock.AnyArg(), "post-1", "user-1", "hi", "ada", "", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(commentsUpdate).WithArgs(1, "post-1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.Create(ctx, comment))
		assert.NotEmpty(t, comment.CommentID)
		assert.False(t, comment.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пост не найден", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewCommentRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO comments`).WillReturnError(&pq.Error{Code: "23503"})
		mock.ExpectRollback()

		err := repo.Create(ctx, &models.Comment{PostID: "missing", UserID: "user-1", Content: "hi"})

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCommentRepository_GetByPostID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(selectCommentsQuery)).
		WithArgs("post-1").
		WillReturnRows(sqlmock.NewRows(commentColumns).
			AddRow("c1", "post-1", "u1", "first", "ada", "", older).
			AddRow("c2", "post-1", "u2", "second", "bob", "", newer))

	comments, err := repo.GetByPostID(context.Background(), "post-1")

	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "c1", comments[0].CommentID)
	assert.Equal(t, "c2", comments[1].CommentID)
	assert.Contains(t, selectCommentsQuery, "ORDER BY created_at ASC")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_Delete(t *testing.T) {
	ctx := context.Background()
	deleteQuery := regexp.QuoteMeta(deleteOwnCommentQuery)
	ownerQuery := regexp.QuoteMeta(selectCommentOwnerQuery)
	commentsUpdate := regexp.QuoteMeta(counterQuery(commentsCounter))

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "Автор удаляет свой комментарий",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(deleteQuery).WithArgs("c1", "post-1", "user-1").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec(commentsUpdate).WithArgs(-1, "post-1").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "Чужой комментарий удалить нельзя",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(deleteQuery).WithArgs("c1", "post-1", "user-1").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(ownerQuery).WithArgs("c1", "post-1").
					WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("user-2"))
				mock.ExpectRollback()
			},
			wantErr: ErrForbidden,
		},
		{
			name: "Комментарий не найден",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(deleteQuery).WithArgs("c1", "post-1", "user-1").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(ownerQuery).WithArgs("c1", "post-1").WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewCommentRepository(db)
			tt.setupMock(mock)

			err := repo.Delete(ctx, "c1", "post-1", "user-1")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
