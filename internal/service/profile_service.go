package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"unicode/utf8"

	"monoforum/internal/models"
	"monoforum/internal/repository"
)

const (
	minUsernameLength = 1
	maxUsernameLength = 30
	maxBioLength      = 500
)

type ProfileRequest struct {
	Username  string
	Bio       string
	AvatarURL *string
}

type ProfileService interface {
	CreateProfile(ctx context.Context, identity *models.Identity, req ProfileRequest) (*models.Profile, error)
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, identity *models.Identity, req ProfileRequest) (*models.Profile, error)
}

type profileService struct {
	profileRepo repository.ProfileRepository
}

func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

// DefaultAvatarURL is used for profiles created without an uploaded avatar.
func DefaultAvatarURL(username string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(username) + "&background=random"
}

func (s *profileService) CreateProfile(ctx context.Context, identity *models.Identity, req ProfileRequest) (*models.Profile, error) {
	if identity == nil {
		return nil, ErrNotAuthenticated
	}

	username, bio, err := normalizeProfile(req)
	if err != nil {
		return nil, err
	}

	avatarURL := DefaultAvatarURL(username)
	if req.AvatarURL != nil && strings.TrimSpace(*req.AvatarURL) != "" {
		avatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	profile := &models.Profile{
		ID:        identity.UserID,
		Username:  username,
		AvatarURL: avatarURL,
		Bio:       bio,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

// GetProfile returns repository.ErrNotFound (wrapped) when the identity has
// not completed its profile yet.
func (s *profileService) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	return s.profileRepo.GetByID(ctx, id)
}

// UpdateProfile keeps the current avatar when req.AvatarURL is nil or blank. Posts and
// comments written earlier keep their old author snapshot.
func (s *profileService) UpdateProfile(ctx context.Context, identity *models.Identity, req ProfileRequest) (*models.Profile, error) {
	if identity == nil {
		return nil, ErrNotAuthenticated
	}

	username, bio, err := normalizeProfile(req)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileRequired
		}
		return nil, err
	}

	profile.Username = username
	profile.Bio = bio
	if req.AvatarURL != nil && strings.TrimSpace(*req.AvatarURL) != "" {
		profile.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

func normalizeProfile(req ProfileRequest) (string, string, error) {
	username := strings.TrimSpace(req.Username)
	bio := strings.TrimSpace(req.Bio)

	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return "", "", validationError("имя пользователя должно содержать от %d до %d символов", minUsernameLength, maxUsernameLength)
	}

	if utf8.RuneCountInString(bio) > maxBioLength {
		return "", "", validationError("описание не может быть длиннее %d символов", maxBioLength)
	}

	return username, bio, nil
}
