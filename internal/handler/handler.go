package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"monoforum/internal/config"
	"monoforum/internal/service"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	HealthCheck() error
}

type Handlers struct {
	AuthService    service.AuthService
	ProfileService service.ProfileService
	PostService    service.PostService
	CommentService service.CommentService
	MediaService   service.MediaService
	Health         HealthChecker
	Cfg            *config.Config
	Validate       *validator.Validate
	Log            *logrus.Logger
}

func NewHandlers(services *service.Service, health HealthChecker, cfg *config.Config, log *logrus.Logger) *Handlers {
	return &Handlers{
		AuthService:    services.Auth,
		ProfileService: services.Profile,
		PostService:    services.Post,
		CommentService: services.Comment,
		MediaService:   services.Media,
		Health:         health,
		Cfg:            cfg,
		Validate:       validator.New(),
		Log:            log,
	}
}

// Router registers every route on the root router so that a path matched
// with the wrong method gets 405 instead of 404. Static segments are
// registered before the {id} patterns that would otherwise shadow them.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, "Маршрут не найден", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	r.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/auth/signup", h.SignUp).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/signin", h.SignIn).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/signout", h.SignOut).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/me", h.GetCurrentUser).Methods(http.MethodGet)

	r.HandleFunc("/api/profile", h.GetOwnProfile).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", h.CreateProfile).Methods(http.MethodPost)
	r.HandleFunc("/api/profile", h.UpdateProfile).Methods(http.MethodPut)
	r.HandleFunc("/api/profiles/{id}", h.GetProfile).Methods(http.MethodGet)

	r.HandleFunc("/api/uploads", h.Upload).Methods(http.MethodPost)

	r.HandleFunc("/api/posts", h.GetPosts).Methods(http.MethodGet)
	r.HandleFunc("/api/posts", h.CreatePost).Methods(http.MethodPost)
	r.HandleFunc("/api/posts/liked", h.GetLikedPosts).Methods(http.MethodGet)
	r.HandleFunc("/api/posts/{id}", h.GetPost).Methods(http.MethodGet)
	r.HandleFunc("/api/posts/{id}/like", h.ToggleLike).Methods(http.MethodPost)
	r.HandleFunc("/api/posts/{id}/share", h.SharePost).Methods(http.MethodGet)
	r.HandleFunc("/api/posts/{id}/comments", h.GetComments).Methods(http.MethodGet)
	r.HandleFunc("/api/posts/{id}/comments", h.CreateComment).Methods(http.MethodPost)
	r.HandleFunc("/api/posts/{id}/comments/{commentID}", h.DeleteComment).Methods(http.MethodDelete)

	return r
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.Health != nil {
		if err := h.Health.HealthCheck(); err != nil {
			h.Log.WithError(err).Warn("health check failed")
			WriteError(w, "База данных недоступна", http.StatusServiceUnavailable)
			return
		}
	}

	writeSuccess(w, map[string]string{"status": "ok"}, http.StatusOK)
}
