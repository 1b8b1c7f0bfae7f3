package v1

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/selams/selams-web/internal/auth"
	"github.com/selams/selams-web/internal/backend"
	"github.com/selams/selams-web/internal/config"
	"github.com/selams/selams-web/internal/media"
	"github.com/selams/selams-web/internal/models"
	"github.com/selams/selams-web/internal/service"
	"github.com/selams/selams-web/internal/utils"
)

// Backend is the part of the backend client the API calls directly.
type Backend interface {
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*backend.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Health(ctx context.Context) error
	AvatarURL(ref *string) string
}

// Pinger is an optional dependency reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Config   *config.Config
	Log      *zap.Logger
	Backend  Backend
	Auth     *auth.Authenticator
	Profiles *service.ProfileService
	Courses  *service.CourseService
	Media    media.Store
	Limiter  *auth.LoginLimiter
	Checks   map[string]Pinger
}

type API struct {
	Deps
	router *chi.Mux
}

func NewAPI(d Deps) *API {
	api := &API{Deps: d, router: chi.NewRouter()}
	api.routes()
	return api
}

func (a *API) Routes() *chi.Mux {
	return a.router
}

func backendUnavailable(w http.ResponseWriter, _ *http.Request, err error) {
	utils.WriteJSONResponse(w, http.StatusBadGateway, false, "backend unavailable", nil, err.Error())
}

func (a *API) routes() {
	authH := NewAuthHandler(a.Config, a.Backend, a.Profiles, a.Log)
	meH := NewMeHandler(a.Backend)
	courseH := NewCourseHandler(a.Courses, a.Log)
	coverH := NewCoverHandler(a.Courses, a.Media, a.Log)

	r := a.router
	r.Use(a.Auth.Middleware(backendUnavailable))

	r.Route("/auth", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.With(a.Limiter.Middleware(a.Log)).Post("/login", authH.Login)
		r.Post("/refresh", authH.Refresh)
		r.Post("/logout", authH.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(auth.DenyJSON))
		r.Get("/me", meH.GetMe)
		r.Get("/nav", meH.GetNav)
		r.Get("/dashboard", courseH.GetDashboard)
	})

	r.Route("/courses", func(r chi.Router) {
		r.Use(auth.RequireSession(auth.DenyJSON))
		r.Get("/", courseH.ListCourses)
		r.Get("/{id}", courseH.GetCourse)
		r.Get("/{id}/outline", courseH.GetOutline)
		r.With(auth.RoleMiddleware(models.RoleTeacher, models.RoleAdmin)).Post("/{id}/cover", coverH.UploadCover)
	})

	r.Route("/health", func(r chi.Router) {
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
		r.Get("/", HealthHandler(a.Backend, a.Checks))
	})
}
