// Package session tracks who is signed in and whether that user has finished
// setting up a profile.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"monoforum/internal/client"
	"monoforum/internal/models"
)

type State int

const (
	Unauthenticated State = iota
	AuthenticatedNoProfile
	AuthenticatedWithProfile
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AuthenticatedNoProfile:
		return "authenticated-no-profile"
	case AuthenticatedWithProfile:
		return "authenticated-with-profile"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const uploadKindAvatars = "avatars"

var (
	ErrNotAuthenticated = errors.New("требуется вход")
	ErrProfileRequired  = errors.New("профиль еще не создан")
)

// Backend is the part of the API the session needs. *client.Client satisfies it.
type Backend interface {
	SignUp(ctx context.Context, email, password string) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (*models.User, error)
	SignOut(ctx context.Context) error
	Me(ctx context.Context) (*models.Identity, error)
	GetProfile(ctx context.Context) (*models.Profile, error)
	CreateProfile(ctx context.Context, input client.ProfileInput) (*models.Profile, error)
	UpdateProfile(ctx context.Context, input client.ProfileInput) (*models.Profile, error)
	UploadImage(ctx context.Context, kind string, upload models.Upload) (string, error)
}

type Listener func(identity *models.Identity)

type Manager struct {
	backend Backend
	log     logrus.FieldLogger

	mu        sync.Mutex
	state     State
	identity  *models.Identity
	profile   *models.Profile
	epoch     uint64
	listeners map[uint64]Listener
	nextID    uint64
}

func NewManager(backend Backend, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Manager{
		backend:   backend,
		log:       log,
		listeners: make(map[uint64]Listener),
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Identity() *models.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return nil
	}
	identity := *m.identity
	return &identity
}

func (m *Manager) Profile() *models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	profile := *m.profile
	return &profile
}

// OnAuthStateChange calls fn right away with the current identity and again
// on every sign in and sign out. The returned func unsubscribes.
func (m *Manager) OnAuthStateChange(fn Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	var current *models.Identity
	if m.identity != nil {
		identity := *m.identity
		current = &identity
	}
	m.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) SignUp(ctx context.Context, email, password string) error {
	user, err := m.backend.SignUp(ctx, email, password)
	if err != nil {
		return fmt.Errorf("ошибка регистрации: %w", err)
	}

	m.signedIn(user)
	return m.RefreshProfile(ctx)
}

func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	user, err := m.backend.SignIn(ctx, email, password)
	if err != nil {
		return fmt.Errorf("ошибка входа: %w", err)
	}

	m.signedIn(user)
	return m.RefreshProfile(ctx)
}

// Restore resumes the session behind a token the backend already holds,
// typically one saved by an earlier run. A rejected token leaves the session
// Unauthenticated and is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	identity, err := m.backend.Me(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return nil
		}
		return fmt.Errorf("не удалось восстановить сессию: %w", err)
	}

	m.signedIn(&models.User{UserID: identity.UserID, Email: identity.Email})
	return m.RefreshProfile(ctx)
}

// RefreshProfile looks the profile up again. A missing profile is not an
// error: the session stays in AuthenticatedNoProfile. Any other failure is
// returned and the state is left as it was.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	m.mu.Lock()
	if m.identity == nil {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	epoch := m.epoch
	m.mu.Unlock()

	profile, err := m.backend.GetProfile(ctx)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("не удалось загрузить профиль: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return nil
	}
	m.profile = profile
	m.state = AuthenticatedWithProfile

	return nil
}

// CompleteProfile uploads the avatar, when given, before the profile is created.
func (m *Manager) CompleteProfile(ctx context.Context, username, bio string, avatar *models.Upload) (*models.Profile, error) {
	epoch, err := m.requireIdentity()
	if err != nil {
		return nil, err
	}

	input := client.ProfileInput{Username: username, Bio: bio}
	if avatar != nil {
		url, err := m.backend.UploadImage(ctx, uploadKindAvatars, *avatar)
		if err != nil {
			return nil, fmt.Errorf("не удалось загрузить аватар: %w", err)
		}
		input.AvatarURL = &url
	}

	profile, err := m.backend.CreateProfile(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать профиль: %w", err)
	}

	m.storeProfile(epoch, profile)
	return profile, nil
}

// EditProfile keeps the current avatar when avatar is nil.
func (m *Manager) EditProfile(ctx context.Context, username, bio string, avatar *models.Upload) (*models.Profile, error) {
	epoch, err := m.requireIdentity()
	if err != nil {
		return nil, err
	}
	if m.State() != AuthenticatedWithProfile {
		return nil, ErrProfileRequired
	}

	input := client.ProfileInput{Username: username, Bio: bio}
	if avatar != nil {
		url, err := m.backend.UploadImage(ctx, uploadKindAvatars, *avatar)
		if err != nil {
			return nil, fmt.Errorf("не удалось загрузить аватар: %w", err)
		}
		input.AvatarURL = &url
	}

	profile, err := m.backend.UpdateProfile(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("не удалось обновить профиль: %w", err)
	}

	m.storeProfile(epoch, profile)
	return profile, nil
}

// SignOut always clears the local session, the remote error is still returned.
func (m *Manager) SignOut(ctx context.Context) error {
	if _, err := m.requireIdentity(); err != nil {
		return err
	}

	remoteErr := m.backend.SignOut(ctx)
	if remoteErr != nil {
		m.log.WithError(remoteErr).Warn("sign out was not confirmed by the server")
	}

	m.mu.Lock()
	m.epoch++
	m.state = Unauthenticated
	m.identity = nil
	m.profile = nil
	listeners := m.snapshotListenersLocked()
	m.mu.Unlock()

	notify(listeners, nil)

	if remoteErr != nil {
		return fmt.Errorf("ошибка выхода: %w", remoteErr)
	}
	return nil
}

func (m *Manager) signedIn(user *models.User) {
	m.mu.Lock()
	m.epoch++
	m.identity = &models.Identity{UserID: user.UserID, Email: user.Email}
	m.profile = nil
	m.state = AuthenticatedNoProfile
	identity := *m.identity
	listeners := m.snapshotListenersLocked()
	m.mu.Unlock()

	m.log.WithField("user_id", user.UserID).Debug("signed in")
	notify(listeners, &identity)
}

func (m *Manager) requireIdentity() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return 0, ErrNotAuthenticated
	}
	return m.epoch, nil
}

func (m *Manager) storeProfile(epoch uint64, profile *models.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return
	}
	m.profile = profile
	m.state = AuthenticatedWithProfile
}

func (m *Manager) snapshotListenersLocked() []Listener {
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

func notify(listeners []Listener, identity *models.Identity) {
	for _, l := range listeners {
		if identity == nil {
			l(nil)
			continue
		}
		copied := *identity
		l(&copied)
	}
}
