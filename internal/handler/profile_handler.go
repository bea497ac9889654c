package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"monoforum/internal/service"
)

type ProfileRequest struct {
	Username  string  `json:"username" validate:"required,max=30"`
	Bio       string  `json:"bio" validate:"max=500"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url"`
}

func (req *ProfileRequest) normalize() {
	req.AvatarURL = blankToNil(req.AvatarURL)
}

func (req ProfileRequest) toService() service.ProfileRequest {
	return service.ProfileRequest{
		Username:  req.Username,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	}
}

// GetOwnProfile answers 404 until the caller has completed a profile.
func (h *Handlers) GetOwnProfile(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		WriteError(w, "Требуется аутентификация", http.StatusUnauthorized)
		return
	}

	profile, err := h.ProfileService.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, profile, http.StatusOK)
}

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.ProfileService.GetProfile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, profile, http.StatusOK)
}

func (h *Handlers) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.ProfileService.CreateProfile(r.Context(), IdentityFromContext(r.Context()), req.toService())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, profile, http.StatusCreated)
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.ProfileService.UpdateProfile(r.Context(), IdentityFromContext(r.Context()), req.toService())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, profile, http.StatusOK)
}
