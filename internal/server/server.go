package server

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	v1 "github.com/selams/selams-web/internal/api/v1"
	"github.com/selams/selams-web/internal/config"
	"github.com/selams/selams-web/internal/utils"
	"github.com/selams/selams-web/internal/web"
)

type Server struct {
	cfg   *config.Config
	log   *zap.Logger
	api   *v1.API
	pages *web.Pages
}

func NewServer(cfg *config.Config, log *zap.Logger, api *v1.API, pages *web.Pages) *Server {
	return &Server{cfg: cfg, log: log, api: api, pages: pages}
}

// Handler builds the root router: JSON API under /api/v1, local uploads
// under /uploads and the HTML pages everywhere else.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(utils.RequestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Mount("/api/v1", s.api.Routes())
	if s.cfg.MediaBackend == "" || s.cfg.MediaBackend == "local" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.cfg.UploadDir)))
		r.With(noSniff).Handle("/uploads/*", fs)
	}
	r.Mount("/", s.pages.Routes())
	return r
}

func (s *Server) NewHTTPServer() *http.Server {
	if s.cfg.UploadDir != "" {
		if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
			s.log.Warn("create upload dir", zap.String("dir", s.cfg.UploadDir), zap.Error(err))
		}
	}
	return &http.Server{
		Addr:              s.cfg.BindAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func noSniff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}
