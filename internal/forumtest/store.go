// Package forumtest is an in-memory forum backend for tests of the client
// side state. It keeps the same invariants the database enforces: one like
// per user and post, counters equal to row counts and never negative, comment
// deletion by the author only.
package forumtest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"monoforum/internal/client"
	"monoforum/internal/models"
)

type account struct {
	user     models.User
	password string
}

type likeKey struct {
	postID string
	userID string
}

type Store struct {
	mu       sync.Mutex
	accounts map[string]*account
	profiles map[string]models.Profile
	posts    map[string]*models.Post
	comments map[string][]models.Comment
	likes    map[likeKey]struct{}
	failures map[string]error
	blobs    map[string][]byte
	seq      int
	clock    time.Time
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*account),
		profiles: make(map[string]models.Profile),
		posts:    make(map[string]*models.Post),
		comments: make(map[string][]models.Comment),
		likes:    make(map[likeKey]struct{}),
		failures: make(map[string]error),
		blobs:    make(map[string][]byte),
		clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// FailNext makes the next call of op (a Backend method name) return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Post returns the stored row, not a client projection.
func (s *Store) Post(postID string) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return models.Post{}, false
	}
	return *p, true
}

func (s *Store) LikeRows(postID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.likes {
		if k.postID == postID {
			n++
		}
	}
	return n
}

func (s *Store) CommentRows(postID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.comments[postID])
}

func (s *Store) Blob(url string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[url]
	return data, ok
}

// Client returns a fresh signed-out caller bound to the store.
func (s *Store) Client() *Client {
	return &Client{store: s}
}

func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *Store) takeFailure(op string) error {
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return err
}

// Client mirrors the method set of *client.Client for one caller.
type Client struct {
	store  *Store
	userID string
	email  string
}

func (c *Client) UserID() string {
	return c.userID
}

// begin locks the store and applies injected failures and the auth check.
func (c *Client) begin(op string, needAuth bool) (func(), error) {
	c.store.mu.Lock()
	unlock := c.store.mu.Unlock

	if err := c.store.takeFailure(op); err != nil {
		unlock()
		return nil, err
	}

	if needAuth && c.userID == "" {
		unlock()
		return nil, client.ErrUnauthorized
	}

	return unlock, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	unlock, err := c.begin("SignUp", false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	email = strings.ToLower(strings.TrimSpace(email))
	if _, exists := c.store.accounts[email]; exists {
		return nil, client.ErrConflict
	}

	acc := &account{
		user:     models.User{UserID: c.store.nextID("user"), Email: email, CreatedAt: c.store.tick()},
		password: password,
	}
	c.store.accounts[email] = acc
	c.userID, c.email = acc.user.UserID, email

	user := acc.user
	return &user, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	unlock, err := c.begin("SignIn", false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	acc, ok := c.store.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok || acc.password != password {
		return nil, client.ErrUnauthorized
	}
	c.userID, c.email = acc.user.UserID, acc.user.Email

	user := acc.user
	return &user, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	unlock, err := c.begin("SignOut", false)
	c.userID, c.email = "", ""
	if err != nil {
		return err
	}
	unlock()
	return nil
}

func (c *Client) Me(ctx context.Context) (*models.Identity, error) {
	unlock, err := c.begin("Me", true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return &models.Identity{UserID: c.userID, Email: c.email}, nil
}

func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	unlock, err := c.begin("GetProfile", true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	profile, ok := c.store.profiles[c.userID]
	if !ok {
		return nil, client.ErrNotFound
	}
	return &profile, nil
}

func (c *Client) CreateProfile(ctx context.Context, input client.ProfileInput) (*models.Profile, error) {
	unlock, err := c.begin("CreateProfile", true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, client.ErrValidation
	}
	if _, exists := c.store.profiles[c.userID]; exists {
		return nil, client.ErrConflict
	}
	for _, p := range c.store.profiles {
		if p.Username == username {
			return nil, client.ErrConflict
		}
	}

	profile := models.Profile{
		ID:        c.userID,
		Username:  username,
		Bio:       strings.TrimSpace(input.Bio),
		AvatarURL: "https://ui-avatars.com/api/?name=" + username + "&background=random",
		CreatedAt: c.store.tick(),
	}
	if input.AvatarURL != nil {
		profile.AvatarURL = *input.AvatarURL
	}
	c.store.profiles[c.userID] = profile

	return &profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, input client.ProfileInput) (*models.Profile, error) {
	unlock, err := c.begin("UpdateProfile", true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	profile, ok := c.store.profiles[c.userID]
	if !ok {
		return nil, client.ErrForbidden
	}
	if strings.TrimSpace(input.Username) == "" {
		return nil, client.ErrValidation
	}

	profile.Username = strings.TrimSpace(input.Username)
	profile.Bio = strings.TrimSpace(input.Bio)
	if input.AvatarURL != nil {
		profile.AvatarURL = *input.AvatarURL
	}
	c.store.profiles[c.userID] = profile

	return &profile, nil
}

func (c *Client) UploadImage(ctx context.Context, kind string, upload models.Upload) (string, error) {
	unlock, err := c.begin("UploadImage", true)
	if err != nil {
		return "", err
	}
	defer unlock()

	if len(upload.Data) == 0 {
		return "", client.ErrValidation
	}

	url := fmt.Sprintf("https://blobs.test/%s/%s/%d-%s", kind, c.userID, c.store.tick().UnixMilli(), upload.FileName)
	c.store.blobs[url] = upload.Data
	return url, nil
}

func (c *Client) GetPosts(ctx context.Context) ([]models.Post, error) {
	unlock, err := c.begin("GetPosts", true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	posts := make([]models.Post, 0, len(c.store.posts))
	for _, p := range c.store.posts {
		posts = append(posts, *p)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts, nil
}

func (c *Client) GetLikedPosts(ctx context.Context) ([]string, error) {
	unlock, err := c.begin("GetLikedPosts", true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	ids := []string{}
	for k := range c.store.likes {
		if k.userID == c.userID {
			ids = append(ids, k.postID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (c *Client) CreatePost(ctx context.Context, content string, imageURL *string) (*models.Post, error) {
	unlock, err := c.begin("CreatePost", true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	profile, ok := c.store.profiles[c.userID]
	if !ok {
		return nil, client.ErrForbidden
	}
	content = strings.TrimSpace(content)
	if content == "" && imageURL == nil {
		return nil, client.ErrValidation
	}

	post := &models.Post{
		PostID:    c.store.nextID("post"),
		UserID:    c.userID,
		Content:   content,
		ImageURL:  imageURL,
		Username:  profile.Username,
		AvatarURL: profile.AvatarURL,
		CreatedAt: c.store.tick(),
	}
	c.store.posts[post.PostID] = post

	out := *post
	return &out, nil
}

// ToggleLike flips the like in one critical section, so the counter always
// equals the number of like rows.
func (c *Client) ToggleLike(ctx context.Context, postID string) (bool, error) {
	unlock, err := c.begin("ToggleLike", true)
	if err != nil {
		return false, err
	}
	defer unlock()

	post, ok := c.store.posts[postID]
	if !ok {
		return false, client.ErrNotFound
	}

	key := likeKey{postID: postID, userID: c.userID}
	if _, liked := c.store.likes[key]; liked {
		delete(c.store.likes, key)
		if post.Likes > 0 {
			post.Likes--
		}
		return false, nil
	}

	c.store.likes[key] = struct{}{}
	post.Likes++
	return true, nil
}

func (c *Client) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	unlock, err := c.begin("GetComments", true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	comments := append([]models.Comment{}, c.store.comments[postID]...)
	return comments, nil
}

func (c *Client) CreateComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	unlock, err := c.begin("CreateComment", true)
	if err != nil {
		return nil, err
	}
	defer unlock()

	post, ok := c.store.posts[postID]
	if !ok {
		return nil, client.ErrNotFound
	}
	profile, ok := c.store.profiles[c.userID]
	if !ok {
		return nil, client.ErrForbidden
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, client.ErrValidation
	}

	comment := models.Comment{
		CommentID: c.store.nextID("comment"),
		PostID:    postID,
		UserID:    c.userID,
		Content:   content,
		Username:  profile.Username,
		AvatarURL: profile.AvatarURL,
		CreatedAt: c.store.tick(),
	}
	c.store.comments[postID] = append(c.store.comments[postID], comment)
	post.Comments++

	return &comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) error {
	unlock, err := c.begin("DeleteComment", true)
	if err != nil {
		return err
	}
	defer unlock()

	comments := c.store.comments[postID]
	for i, comment := range comments {
		if comment.CommentID != commentID {
			continue
		}
		if comment.UserID != c.userID {
			return client.ErrForbidden
		}

		c.store.comments[postID] = append(comments[:i:i], comments[i+1:]...)
		if post, ok := c.store.posts[postID]; ok && post.Comments > 0 {
			post.Comments--
		}
		return nil
	}

	return client.ErrNotFound
}
