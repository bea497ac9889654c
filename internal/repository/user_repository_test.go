package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"monoforum/internal/models"
)

// setupMockDB binds named queries with $n placeholders, as on Postgres.
func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "postgres")
	t.Cleanup(func() { sqlxDB.Close() })

	return sqlxDB, mock
}

var userColumns = []string{"user_id", "email", "password_hash", "created_at"}

func TestUserRepository_CreateUser(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Успешное создание пользователя", func(t *testing.T) {
		user := &models.User{Email: " Ada@Example.com "}

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(sqlmock.AnyArg(), "ada@example.com", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.CreateUser(ctx, user, "password123")

		require.NoError(t, err)
		assert.NotEmpty(t, user.UserID)
		assert.NotEqual(t, "password123", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password123")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка при дублировании email", func(t *testing.T) {
		user := &models.User{Email: "ada@example.com"}

		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := repo.CreateUser(ctx, user, "password123")

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("Ошибка базы данных", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("connection failed"))

		err := repo.CreateUser(ctx, &models.User{Email: "x@example.com"}, "password123")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка при создании пользователя")
	})
}

func TestUserRepository_GetUserByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	userID := uuid.New().String()

	t.Run("Успешное получение пользователя по ID", func(t *testing.T) {
		rows := sqlmock.NewRows(userColumns).AddRow(userID, "ada@example.com", "hash", time.Now())

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM users WHERE user_id = $1`)).
			WithArgs(userID).
			WillReturnRows(rows)

		user, err := repo.GetUserByID(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, userID, user.UserID)
		assert.Equal(t, "ada@example.com", user.Email)
	})

	t.Run("Пользователь не найден", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM users WHERE user_id = $1`)).
			WithArgs(userID).
			WillReturnError(sql.ErrNoRows)

		user, err := repo.GetUserByID(ctx, userID)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Ошибка базы данных", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM users WHERE user_id = $1`)).
			WithArgs(userID).
			WillReturnError(errors.New("connection failed"))

		user, err := repo.GetUserByID(ctx, userID)

		assert.Nil(t, user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "ошибка при получении пользователя")
	})
}

func TestUserRepository_VerifyPassword(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)

	query := regexp.QuoteMeta(`SELECT * FROM users WHERE email = $1`)

	t.Run("Верный пароль", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("ada@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "ada@example.com", string(hash), time.Now()))

		user, err := repo.VerifyPassword(ctx, "ADA@example.com", "password123")

		require.NoError(t, err)
		assert.Equal(t, "u1", user.UserID)
	})

	t.Run("Неверный пароль", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("ada@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "ada@example.com", string(hash), time.Now()))

		user, err := repo.VerifyPassword(ctx, "ada@example.com", "wrong")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Неизвестный email", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		user, err := repo.VerifyPassword(ctx, "nobody@example.com", "password123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
