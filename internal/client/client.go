// Package client talks to the forum HTTP API on behalf of one signed-in user.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"monoforum/internal/models"
	"monoforum/internal/share"
)

var (
	ErrNotFound     = errors.New("не найдено")
	ErrUnauthorized = errors.New("требуется аутентификация")
	ErrForbidden    = errors.New("доступ запрещен")
	ErrValidation   = errors.New("некорректные данные")
	ErrConflict     = errors.New("уже существует")
	ErrRemote       = errors.New("сервер недоступен")
)

// APIError is a non-2xx answer. It unwraps to one of the sentinel errors above.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.kind
}

func kindForStatus(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrRemote
	}
}

type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	User        *models.User `json:"user"`
}

type ProfileInput struct {
	Username  string  `json:"username"`
	Bio       string  `json:"bio"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger

	mu    sync.RWMutex
	token string
}

func New(baseURL string, log logrus.FieldLogger) *Client {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	return c.authenticate(ctx, "/api/auth/signup", email, password)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	return c.authenticate(ctx, "/api/auth/signin", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*models.User, error) {
	var resp AuthResponse
	body := map[string]string{"email": email, "password": password}

	if err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	c.SetToken(resp.AccessToken)
	return resp.User, nil
}

// SignOut forgets the token even when the server could not revoke it.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
	c.SetToken("")
	return err
}

func (c *Client) Me(ctx context.Context) (*models.Identity, error) {
	var identity models.Identity
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// GetProfile returns ErrNotFound while the caller has no profile yet.
func (c *Client) GetProfile(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/api/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) GetProfileByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := c.doJSON(ctx, http.MethodGet, "/api/profiles/"+url.PathEscape(id), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) CreateProfile(ctx context.Context, input ProfileInput) (*models.Profile, error) {
	var profile models.Profile
	if err := c.doJSON(ctx, http.MethodPost, "/api/profile", input, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) UpdateProfile(ctx context.Context, input ProfileInput) (*models.Profile, error) {
	var profile models.Profile
	if err := c.doJSON(ctx, http.MethodPut, "/api/profile", input, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UploadImage stores the image under kind ("posts" or "avatars") and returns
// its public URL.
func (c *Client) UploadImage(ctx context.Context, kind string, upload models.Upload) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", upload.FileName)
	if err != nil {
		return "", fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	if _, err := part.Write(upload.Data); err != nil {
		return "", fmt.Errorf("ошибка формирования запроса: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("ошибка формирования запроса: %w", err)
	}

	var resp struct {
		URL string `json:"url"`
	}

	path := "/api/uploads?kind=" + url.QueryEscape(kind)
	if err := c.do(ctx, http.MethodPost, path, &body, writer.FormDataContentType(), &resp); err != nil {
		return "", err
	}

	return resp.URL, nil
}

func (c *Client) GetPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/api/posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (c *Client) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(postID), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) CreatePost(ctx context.Context, content string, imageURL *string) (*models.Post, error) {
	body := struct {
		Content  string  `json:"content"`
		ImageURL *string `json:"imageUrl,omitempty"`
	}{Content: content, ImageURL: imageURL}

	var post models.Post
	if err := c.doJSON(ctx, http.MethodPost, "/api/posts", body, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *Client) GetLikedPosts(ctx context.Context) ([]string, error) {
	var resp struct {
		PostIDs []string `json:"postIds"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/posts/liked", nil, &resp); err != nil {
		return nil, err
	}
	return resp.PostIDs, nil
}

func (c *Client) ToggleLike(ctx context.Context, postID string) (bool, error) {
	var resp models.ToggleLikeResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(postID)+"/like", nil, &resp); err != nil {
		return false, err
	}
	return resp.Liked, nil
}

func (c *Client) GetComments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.doJSON(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(postID)+"/comments", nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (c *Client) CreateComment(ctx context.Context, postID, content string) (*models.Comment, error) {
	var comment models.Comment
	body := map[string]string{"content": content}
	if err := c.doJSON(ctx, http.MethodPost, "/api/posts/"+url.PathEscape(postID)+"/comments", body, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) error {
	path := "/api/posts/" + url.PathEscape(postID) + "/comments/" + url.PathEscape(commentID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) Share(ctx context.Context, postID string) (*share.Links, error) {
	var links share.Links
	if err := c.doJSON(ctx, http.MethodGet, "/api/posts/"+url.PathEscape(postID)+"/share", nil, &links); err != nil {
		return nil, err
	}
	return &links, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	contentType := ""

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ошибка сериализации запроса: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	return c.do(ctx, method, path, reader, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("ошибка формирования запроса: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("path", path).Debug("request failed")
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, kind: kindForStatus(resp.StatusCode)}

		var errResp struct {
			Error string `json:"error"`
		}
		if raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 64*1024)); readErr == nil {
			if json.Unmarshal(raw, &errResp) == nil {
				apiErr.Message = errResp.Error
			}
		}

		c.log.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
			"status": resp.StatusCode,
		}).Debug("api error")

		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: некорректный ответ: %w", ErrRemote, err)
	}

	return nil
}
