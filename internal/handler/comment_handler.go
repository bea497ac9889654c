package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"monoforum/internal/models"
)

type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (h *Handlers) GetComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.CommentService.GetComments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if comments == nil {
		comments = []models.Comment{}
	}

	writeSuccess(w, comments, http.StatusOK)
}

func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	comment, err := h.CommentService.CreateComment(r.Context(), IdentityFromContext(r.Context()), mux.Vars(r)["id"], req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, comment, http.StatusCreated)
}

func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.CommentService.DeleteComment(r.Context(), IdentityFromContext(r.Context()), vars["commentID"], vars["id"]); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
