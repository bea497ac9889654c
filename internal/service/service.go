package service

import (
	"monoforum/internal/config"
	"monoforum/internal/repository"
	"monoforum/internal/storage"
)

type Service struct {
	Auth    AuthService
	Profile ProfileService
	Post    PostService
	Comment CommentService
	Media   MediaService
}

func NewService(rep *repository.Repository, cfg *config.Config, storage storage.Storage, tokens TokenStore) *Service {
	return &Service{
		Auth:    NewAuthService(rep.User, tokens, cfg),
		Profile: NewProfileService(rep.Profile),
		Post:    NewPostService(rep.Post, rep.Like, rep.Profile),
		Comment: NewCommentService(rep.Comment, rep.Profile),
		Media:   NewMediaService(storage, cfg),
	}
}
