package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"monoforum/internal/models"
	"monoforum/internal/repository"
)

const maxPostLength = 5000

type CreatePostRequest struct {
	Content  string
	ImageURL *string
}

type PostService interface {
	CreatePost(ctx context.Context, identity *models.Identity, req CreatePostRequest) (*models.Post, error)
	GetPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	ToggleLike(ctx context.Context, identity *models.Identity, postID string) (bool, error)
	GetLikedPosts(ctx context.Context, identity *models.Identity) ([]string, error)
}

type postService struct {
	postRepo    repository.PostRepository
	likeRepo    repository.LikeRepository
	profileRepo repository.ProfileRepository
}

func NewPostService(postRepo repository.PostRepository, likeRepo repository.LikeRepository, profileRepo repository.ProfileRepository) PostService {
	return &postService{
		postRepo:    postRepo,
		likeRepo:    likeRepo,
		profileRepo: profileRepo,
	}
}

// CreatePost accepts an image-only post; text-only posts need non-blank
// content. The author's current username and avatar are copied into the post.
func (p *postService) CreatePost(ctx context.Context, identity *models.Identity, req CreatePostRequest) (*models.Post, error) {
	if identity == nil {
		return nil, ErrNotAuthenticated
	}

	content := strings.TrimSpace(req.Content)

	var imageURL *string
	if req.ImageURL != nil && strings.TrimSpace(*req.ImageURL) != "" {
		trimmed := strings.TrimSpace(*req.ImageURL)
		imageURL = &trimmed
	}

	if content == "" && imageURL == nil {
		return nil, validationError("пост не может быть пустым")
	}

	if utf8.RuneCountInString(content) > maxPostLength {
		return nil, validationError("пост не может быть длиннее %d символов", maxPostLength)
	}

	author, err := p.profileRepo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileRequired
		}
		return nil, err
	}

	post := &models.Post{
		UserID:    identity.UserID,
		Content:   content,
		ImageURL:  imageURL,
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
	}

	if err := p.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return post, nil
}

func (p *postService) GetPosts(ctx context.Context) ([]models.Post, error) {
	return p.postRepo.GetAll(ctx)
}

func (p *postService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	return p.postRepo.GetByID(ctx, postID)
}

func (p *postService) ToggleLike(ctx context.Context, identity *models.Identity, postID string) (bool, error) {
	if identity == nil {
		return false, ErrNotAuthenticated
	}

	return p.likeRepo.Toggle(ctx, postID, identity.UserID)
}

func (p *postService) GetLikedPosts(ctx context.Context, identity *models.Identity) ([]string, error) {
	if identity == nil {
		return nil, ErrNotAuthenticated
	}

	return p.likeRepo.GetLikedPostIDs(ctx, identity.UserID)
}
