package session

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monoforum/internal/client"
	"monoforum/internal/forumtest"
	"monoforum/internal/models"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newManager(store *forumtest.Store) *Manager {
	return NewManager(store.Client(), quietLogger())
}

func TestManager_SignUpWithoutProfile(t *testing.T) {
	ctx := context.Background()
	m := newManager(forumtest.NewStore())

	assert.Equal(t, Unauthenticated, m.State())

	require.NoError(t, m.SignUp(ctx, "ada@example.com", "password123"))

	assert.Equal(t, AuthenticatedNoProfile, m.State())
	require.NotNil(t, m.Identity())
	assert.Equal(t, "ada@example.com", m.Identity().Email)
	assert.Nil(t, m.Profile())
}

func TestManager_SignInFindsExistingProfile(t *testing.T) {
	ctx := context.Background()
	store := forumtest.NewStore()

	first := newManager(store)
	require.NoError(t, first.SignUp(ctx, "ada@example.com", "password123"))
	_, err := first.CompleteProfile(ctx, "ada", "", nil)
	require.NoError(t, err)

	second := newManager(store)
	require.NoError(t, second.SignIn(ctx, "ada@example.com", "password123"))

	assert.Equal(t, AuthenticatedWithProfile, second.State())
	assert.Equal(t, "ada", second.Profile().Username)
}

func TestManager_ProfileFetchFailureIsNotNotFound(t *testing.T) {
	ctx := context.Background()
	store := forumtest.NewStore()
	m := newManager(store)

	store.FailNext("GetProfile", client.ErrRemote)
	err := m.SignUp(ctx, "ada@example.com", "password123")

	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrRemote)
	assert.Equal(t, AuthenticatedNoProfile, m.State())
	assert.NotNil(t, m.Identity())
}

func TestManager_SignInFailure(t *testing.T) {
	m := newManager(forumtest.NewStore())

	err := m.SignIn(context.Background(), "nobody@example.com", "password123")

	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, Unauthenticated, m.State())
}

func TestManager_Restore(t *testing.T) {
	ctx := context.Background()

	t.Run("Сохраненный токен с профилем", func(t *testing.T) {
		store := forumtest.NewStore()
		api := store.Client()

		first := NewManager(api, quietLogger())
		require.NoError(t, first.SignUp(ctx, "ada@example.com", "password123"))
		_, err := first.CompleteProfile(ctx, "ada", "", nil)
		require.NoError(t, err)

		restored := NewManager(api, quietLogger())
		var seen []*models.Identity
		unsubscribe := restored.OnAuthStateChange(func(identity *models.Identity) {
			seen = append(seen, identity)
		})
		defer unsubscribe()

		require.NoError(t, restored.Restore(ctx))

		assert.Equal(t, AuthenticatedWithProfile, restored.State())
		assert.Equal(t, "ada", restored.Profile().Username)
		require.Len(t, seen, 2)
		assert.Nil(t, seen[0])
		require.NotNil(t, seen[1])
		assert.Equal(t, api.UserID(), seen[1].UserID)
		assert.Equal(t, "ada@example.com", seen[1].Email)
	})

	t.Run("Сохраненный токен без профиля", func(t *testing.T) {
		store := forumtest.NewStore()
		api := store.Client()
		require.NoError(t, NewManager(api, quietLogger()).SignUp(ctx, "ada@example.com", "password123"))

		restored := NewManager(api, quietLogger())
		require.NoError(t, restored.Restore(ctx))

		assert.Equal(t, AuthenticatedNoProfile, restored.State())
		assert.Nil(t, restored.Profile())
	})

	t.Run("Токен отклонен", func(t *testing.T) {
		m := newManager(forumtest.NewStore())
		calls := 0
		unsubscribe := m.OnAuthStateChange(func(*models.Identity) { calls++ })
		defer unsubscribe()

		require.NoError(t, m.Restore(ctx))

		assert.Equal(t, Unauthenticated, m.State())
		assert.Nil(t, m.Identity())
		assert.Equal(t, 1, calls)
	})

	t.Run("Сервер недоступен", func(t *testing.T) {
		store := forumtest.NewStore()
		m := newManager(store)
		store.FailNext("Me", client.ErrRemote)

		err := m.Restore(ctx)

		assert.ErrorIs(t, err, client.ErrRemote)
		assert.Equal(t, Unauthenticated, m.State())
	})
}

func TestManager_CompleteProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("Аватар загружается первым", func(t *testing.T) {
		store := forumtest.NewStore()
		m := newManager(store)
		require.NoError(t, m.SignUp(ctx, "ada@example.com", "password123"))

		profile, err := m.CompleteProfile(ctx, "ada", "math", &models.Upload{FileName: "me.png", Data: []byte("png")})

		require.NoError(t, err)
		assert.Equal(t, AuthenticatedWithProfile, m.State())
		data, ok := store.Blob(profile.AvatarURL)
		require.True(t, ok)
		assert.Equal(t, []byte("png"), data)
	})

	t.Run("Сбой загрузки аватара", func(t *testing.T) {
		store := forumtest.NewStore()
		m := newManager(store)
		require.NoError(t, m.SignUp(ctx, "ada@example.com", "password123"))

		store.FailNext("UploadImage", client.ErrRemote)
		_, err := m.CompleteProfile(ctx, "ada", "", &models.Upload{FileName: "me.png", Data: []byte("png")})

		require.Error(t, err)
		assert.Equal(t, AuthenticatedNoProfile, m.State())
		require.NoError(t, m.RefreshProfile(ctx))
		assert.Equal(t, AuthenticatedNoProfile, m.State())
	})

	t.Run("Без входа", func(t *testing.T) {
		m := newManager(forumtest.NewStore())

		_, err := m.CompleteProfile(ctx, "ada", "", nil)

		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})
}

func TestManager_EditProfile(t *testing.T) {
	ctx := context.Background()
	m := newManager(forumtest.NewStore())
	require.NoError(t, m.SignUp(ctx, "ada@example.com", "password123"))

	_, err := m.EditProfile(ctx, "ada", "", nil)
	assert.ErrorIs(t, err, ErrProfileRequired)

	created, err := m.CompleteProfile(ctx, "ada", "", nil)
	require.NoError(t, err)

	edited, err := m.EditProfile(ctx, "countess", "engines", nil)
	require.NoError(t, err)
	assert.Equal(t, "countess", edited.Username)
	assert.Equal(t, created.AvatarURL, edited.AvatarURL)
	assert.Equal(t, "countess", m.Profile().Username)
}

func TestManager_SignOut(t *testing.T) {
	ctx := context.Background()

	t.Run("Успешный выход", func(t *testing.T) {
		m := newManager(forumtest.NewStore())
		require.NoError(t, m.SignUp(ctx, "ada@example.com", "password123"))
		_, err := m.CompleteProfile(ctx, "ada", "", nil)
		require.NoError(t, err)

		require.NoError(t, m.SignOut(ctx))

		assert.Equal(t, Unauthenticated, m.State())
		assert.Nil(t, m.Identity())
		assert.Nil(t, m.Profile())
	})

	t.Run("Сервер не подтвердил выход", func(t *testing.T) {
		store := forumtest.NewStore()
		m := newManager(store)
		require.NoError(t, m.SignUp(ctx, "ada@example.com", "password123"))

		store.FailNext("SignOut", errors.New("network down"))
		err := m.SignOut(ctx)

		require.Error(t, err)
		assert.Equal(t, Unauthenticated, m.State())
		assert.Nil(t, m.Identity())
	})

	t.Run("Без входа", func(t *testing.T) {
		m := newManager(forumtest.NewStore())

		assert.ErrorIs(t, m.SignOut(ctx), ErrNotAuthenticated)
	})
}

func TestManager_OnAuthStateChange(t *testing.T) {
	ctx := context.Background()
	m := newManager(forumtest.NewStore())

	var seen []*models.Identity
	unsubscribe := m.OnAuthStateChange(func(identity *models.Identity) {
		seen = append(seen, identity)
	})

	require.NoError(t, m.SignUp(ctx, "ada@example.com", "password123"))
	require.NoError(t, m.SignOut(ctx))

	unsubscribe()
	unsubscribe()
	require.NoError(t, m.SignIn(ctx, "ada@example.com", "password123"))

	require.Len(t, seen, 3)
	assert.Nil(t, seen[0])
	require.NotNil(t, seen[1])
	assert.Equal(t, "ada@example.com", seen[1].Email)
	assert.Nil(t, seen[2])
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "authenticated-no-profile", AuthenticatedNoProfile.String())
	assert.Equal(t, "authenticated-with-profile", AuthenticatedWithProfile.String())
}
