package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"monoforum/internal/config"
	"monoforum/internal/models"
	"monoforum/internal/repository"
)

// TokenStore keeps ids of tokens that were signed out before expiry.
type TokenStore interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

type AuthService interface {
	SignUp(ctx context.Context, email, password string) (*models.User, string, error)
	SignIn(ctx context.Context, email, password string) (*models.User, string, error)
	SignOut(ctx context.Context, identity *models.Identity) error
	Authenticate(ctx context.Context, tokenString string) (*models.Identity, error)
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type authService struct {
	userRepo repository.UserRepository
	tokens   TokenStore
	cfg      *config.Config
}

func NewAuthService(userRepo repository.UserRepository, tokens TokenStore, cfg *config.Config) AuthService {
	return &authService{
		userRepo: userRepo,
		tokens:   tokens,
		cfg:      cfg,
	}
}

func (s *authService) SignUp(ctx context.Context, email, password string) (*models.User, string, error) {
	user := &models.User{Email: email}

	err := s.userRepo.CreateUser(ctx, user, password)
	if err != nil {
		return nil, "", err
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *authService) SignIn(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.userRepo.VerifyPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCredentials) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("ошибка аутентификации: %w", err)
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

// SignOut revokes the caller's token for the rest of its lifetime.
func (s *authService) SignOut(ctx context.Context, identity *models.Identity) error {
	if identity == nil {
		return ErrNotAuthenticated
	}

	if err := s.tokens.RevokeToken(ctx, identity.TokenID, time.Until(identity.ExpiresAt)); err != nil {
		return fmt.Errorf("ошибка отзыва токена: %w", err)
	}

	return nil
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*models.Identity, error) {
	claims := &accessClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrNotAuthenticated
	}

	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrNotAuthenticated
	}

	revoked, err := s.tokens.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки токена: %w", err)
	}
	if revoked {
		return nil, ErrNotAuthenticated
	}

	return &models.Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *authService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()

	claims := accessClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		return "", fmt.Errorf("ошибка подписи токена: %w", err)
	}

	return tokenString, nil
}
