package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"monoforum/internal/models"
	"monoforum/internal/repository"
)

const maxCommentLength = 2000

type CommentService interface {
	CreateComment(ctx context.Context, identity *models.Identity, postID, content string) (*models.Comment, error)
	GetComments(ctx context.Context, postID string) ([]models.Comment, error)
	DeleteComment(ctx context.Context, identity *models.Identity, commentID, postID string) error
}

type commentService struct {
	commentRepo repository.CommentRepository
	profileRepo repository.ProfileRepository
}

func NewCommentService(commentRepo repository.CommentRepository, profileRepo repository.ProfileRepository) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		profileRepo: profileRepo,
	}
}

func (s *commentService) CreateComment(ctx context.Context, identity *models.Identity, postID, content string) (*models.Comment, error) {
	if identity == nil {
		return nil, ErrNotAuthenticated
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, validationError("комментарий не может быть пустым")
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return nil, validationError("комментарий не может быть длиннее %d символов", maxCommentLength)
	}

	author, err := s.profileRepo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileRequired
		}
		return nil, err
	}

	comment := &models.Comment{
		PostID:    postID,
		UserID:    identity.UserID,
		Content:   content,
		Username:  author.Username,
		AvatarURL: author.AvatarURL,
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	return comment, nil
}

func (s *commentService) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	return s.commentRepo.GetByPostID(ctx, postID)
}

// DeleteComment leaves the ownership check to the repository so that it is
// enforced in the same statement that deletes the row.
func (s *commentService) DeleteComment(ctx context.Context, identity *models.Identity, commentID, postID string) error {
	if identity == nil {
		return ErrNotAuthenticated
	}

	return s.commentRepo.Delete(ctx, commentID, postID, identity.UserID)
}
