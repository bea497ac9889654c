// Package feed keeps the client side projection of the post feed: posts
// newest first, the set of posts the user liked and the comment lists of
// expanded posts.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"monoforum/internal/client"
	"monoforum/internal/models"
)

const uploadKindPosts = "posts"

const (
	msgLoadFailed      = "не удалось загрузить посты"
	msgLikeFailed      = "не удалось обновить лайк"
	msgEmptyPost       = "пост не может быть пустым"
	msgUploadFailed    = "не удалось загрузить изображение"
	msgPostFailed      = "не удалось опубликовать пост"
	msgCommentsFailed  = "не удалось загрузить комментарии"
	msgEmptyComment    = "комментарий не может быть пустым"
	msgCommentFailed   = "не удалось добавить комментарий"
	msgDeleteFailed    = "не удалось удалить комментарий"
	msgDeleteForbidden = "можно удалять только свои комментарии"
)

var (
	ErrClosed       = errors.New("лента закрыта")
	ErrEmptyPost    = errors.New(msgEmptyPost)
	ErrEmptyComment = errors.New(msgEmptyComment)
)

// Backend is the part of the API the feed needs. *client.Client satisfies it.
type Backend interface {
	GetPosts(ctx context.Context) ([]models.Post, error)
	GetLikedPosts(ctx context.Context) ([]string, error)
	ToggleLike(ctx context.Context, postID string) (bool, error)
	CreatePost(ctx context.Context, content string, imageURL *string) (*models.Post, error)
	UploadImage(ctx context.Context, kind string, upload models.Upload) (string, error)
	GetComments(ctx context.Context, postID string) ([]models.Comment, error)
	CreateComment(ctx context.Context, postID, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID string) error
}

// State is safe for concurrent use. Remote calls run without the lock held;
// their results are applied only if the state is still open.
type State struct {
	backend Backend
	log     logrus.FieldLogger

	mu       sync.Mutex
	posts    []models.Post
	liked    map[string]struct{}
	expanded map[string][]models.Comment
	errMsg   string
	closed   bool
	loadGen  uint64
}

func New(backend Backend, log logrus.FieldLogger) *State {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &State{
		backend:  backend,
		log:      log,
		liked:    make(map[string]struct{}),
		expanded: make(map[string][]models.Comment),
	}
}

// Load fetches posts and liked ids in parallel and replaces the state only
// when both succeed. A result that was overtaken by a newer Load is dropped.
func (s *State) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	var (
		posts []models.Post
		liked []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = s.backend.GetPosts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		liked, err = s.backend.GetLikedPosts(gctx)
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if gen != s.loadGen {
		return nil
	}
	if err != nil {
		return s.failLocked(msgLoadFailed, err)
	}

	s.posts = posts
	s.liked = make(map[string]struct{}, len(liked))
	for _, id := range liked {
		s.liked[id] = struct{}{}
	}
	for postID := range s.expanded {
		if s.indexLocked(postID) < 0 {
			delete(s.expanded, postID)
		}
	}
	s.errMsg = ""

	return nil
}

// ToggleLike applies the server's answer locally without a refetch. The
// counter only moves when the liked set actually changes, and never drops
// below zero.
func (s *State) ToggleLike(ctx context.Context, postID string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	liked, err := s.backend.ToggleLike(ctx, postID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, ErrClosed
	}
	if err != nil {
		return false, s.failLocked(msgLikeFailed, err)
	}

	_, wasLiked := s.liked[postID]
	i := s.indexLocked(postID)

	switch {
	case liked && !wasLiked:
		s.liked[postID] = struct{}{}
		if i >= 0 {
			s.posts[i].Likes++
		}
	case !liked && wasLiked:
		delete(s.liked, postID)
		if i >= 0 {
			s.posts[i].Likes = max(0, s.posts[i].Likes-1)
		}
	}
	s.errMsg = ""

	return liked, nil
}

// CreatePost uploads the image first, then creates the post, then reloads
// the whole feed. Nothing is shown before the server confirms.
func (s *State) CreatePost(ctx context.Context, content string, image *models.Upload) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	content = strings.TrimSpace(content)
	if content == "" && image == nil {
		s.setErr(msgEmptyPost)
		return ErrEmptyPost
	}

	var imageURL *string
	if image != nil {
		url, err := s.backend.UploadImage(ctx, uploadKindPosts, *image)
		if err != nil {
			return s.fail(msgUploadFailed, err)
		}
		imageURL = &url
	}

	if _, err := s.backend.CreatePost(ctx, content, imageURL); err != nil {
		return s.fail(msgPostFailed, err)
	}

	return s.Load(ctx)
}

func (s *State) ExpandComments(ctx context.Context, postID string) error {
	return s.refreshComments(ctx, postID)
}

func (s *State) CollapseComments(postID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expanded, postID)
}

func (s *State) AddComment(ctx context.Context, postID, content string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		s.setErr(msgEmptyComment)
		return ErrEmptyComment
	}

	if _, err := s.backend.CreateComment(ctx, postID, content); err != nil {
		return s.fail(msgCommentFailed, err)
	}

	return s.refreshComments(ctx, postID)
}

func (s *State) DeleteComment(ctx context.Context, postID, commentID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if err := s.backend.DeleteComment(ctx, postID, commentID); err != nil {
		if errors.Is(err, client.ErrForbidden) {
			return s.fail(msgDeleteForbidden, err)
		}
		return s.fail(msgDeleteFailed, err)
	}

	return s.refreshComments(ctx, postID)
}

// refreshComments overwrites the displayed comment count with the length of
// the fetched list.
func (s *State) refreshComments(ctx context.Context, postID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	comments, err := s.backend.GetComments(ctx, postID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if err != nil {
		return s.failLocked(msgCommentsFailed, err)
	}

	if comments == nil {
		comments = []models.Comment{}
	}
	s.expanded[postID] = comments
	if i := s.indexLocked(postID); i >= 0 {
		s.posts[i].Comments = len(comments)
	}
	s.errMsg = ""

	return nil
}

// Close detaches the state. Results of calls still in flight are discarded.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *State) Posts() []models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Post(nil), s.posts...)
}

func (s *State) Post(postID string) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(postID); i >= 0 {
		return s.posts[i], true
	}
	return models.Post{}, false
}

func (s *State) IsLiked(postID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.liked[postID]
	return ok
}

func (s *State) LikedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.liked)
}

// Comments returns the cached list and whether the post is expanded.
func (s *State) Comments(postID string) ([]models.Comment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comments, ok := s.expanded[postID]
	if !ok {
		return nil, false
	}
	return append([]models.Comment(nil), comments...), true
}

// Err is the message of the last failed operation, or "".
func (s *State) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *State) ClearErr() {
	s.setErr("")
}

func (s *State) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *State) setErr(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.errMsg = msg
	}
}

func (s *State) fail(msg string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.failLocked(msg, err)
}

func (s *State) failLocked(msg string, err error) error {
	s.errMsg = msg
	s.log.WithError(err).Warn(msg)
	return fmt.Errorf("%s: %w", msg, err)
}

func (s *State) indexLocked(postID string) int {
	for i := range s.posts {
		if s.posts[i].PostID == postID {
			return i
		}
	}
	return -1
}
