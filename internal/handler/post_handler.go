package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"monoforum/internal/models"
	"monoforum/internal/service"
	"monoforum/internal/share"
)

type CreatePostRequest struct {
	Content  string  `json:"content" validate:"max=5000"`
	ImageURL *string `json:"imageUrl" validate:"omitempty,url"`
}

func (req *CreatePostRequest) normalize() {
	req.ImageURL = blankToNil(req.ImageURL)
}

type LikedPostsResponse struct {
	PostIDs []string `json:"postIds"`
}

func (h *Handlers) GetPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.PostService.GetPosts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if posts == nil {
		posts = []models.Post{}
	}

	writeSuccess(w, posts, http.StatusOK)
}

func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.PostService.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, post, http.StatusOK)
}

func (h *Handlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	post, err := h.PostService.CreatePost(r.Context(), IdentityFromContext(r.Context()), service.CreatePostRequest{
		Content:  req.Content,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, post, http.StatusCreated)
}

func (h *Handlers) GetLikedPosts(w http.ResponseWriter, r *http.Request) {
	ids, err := h.PostService.GetLikedPosts(r.Context(), IdentityFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if ids == nil {
		ids = []string{}
	}

	writeSuccess(w, LikedPostsResponse{PostIDs: ids}, http.StatusOK)
}

func (h *Handlers) ToggleLike(w http.ResponseWriter, r *http.Request) {
	liked, err := h.PostService.ToggleLike(r.Context(), IdentityFromContext(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, models.ToggleLikeResult{Liked: liked}, http.StatusOK)
}

func (h *Handlers) SharePost(w http.ResponseWriter, r *http.Request) {
	post, err := h.PostService.GetPost(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, share.Build(h.Cfg.PublicBaseURL, post.PostID, post.Content), http.StatusOK)
}
