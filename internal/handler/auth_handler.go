package handlers

import (
	"net/http"

	"monoforum/internal/models"
)

type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type AuthResponse struct {
	AccessToken string       `json:"accessToken"`
	User        *models.User `json:"user"`
}

func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, token, err := h.AuthService.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, AuthResponse{AccessToken: token, User: user}, http.StatusCreated)
}

func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, token, err := h.AuthService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, AuthResponse{AccessToken: token, User: user}, http.StatusOK)
}

func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.SignOut(r.Context(), IdentityFromContext(r.Context())); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, MessageResponse{Message: "Выход выполнен"}, http.StatusOK)
}

func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		WriteError(w, "Требуется аутентификация", http.StatusUnauthorized)
		return
	}

	writeSuccess(w, identity, http.StatusOK)
}
