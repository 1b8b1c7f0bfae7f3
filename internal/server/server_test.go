package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	v1 "github.com/selams/selams-web/internal/api/v1"
	"github.com/selams/selams-web/internal/auth"
	"github.com/selams/selams-web/internal/backend"
	"github.com/selams/selams-web/internal/cache"
	"github.com/selams/selams-web/internal/catalog"
	"github.com/selams/selams-web/internal/config"
	"github.com/selams/selams-web/internal/media"
	"github.com/selams/selams-web/internal/service"
	"github.com/selams/selams-web/internal/web"
)

func newTestServer(t *testing.T, backendStatus int) (*Server, *config.Config) {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(backendStatus)
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(upstream.Close)

	cfg, err := config.FromEnv(func(k string) string {
		switch k {
		case "SUPABASE_URL":
			return upstream.URL
		case "SUPABASE_ANON_KEY":
			return "anon"
		case "SUPABASE_JWT_SECRET":
			return "server-test-secret"
		case "ALLOWED_ORIGINS":
			return "http://app.test"
		}
		return ""
	})
	require.NoError(t, err)
	cfg.UploadDir = t.TempDir()
	cfg.UploadBaseURL = "http://localhost:8080"

	log := zap.NewNop()
	client, err := backend.New(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	require.NoError(t, err)
	store, err := media.New(cfg)
	require.NoError(t, err)

	profiles := service.NewProfileService(client, cache.NewMemory(time.Minute), log)
	courses := service.NewCourseService(catalog.NewSample(), store, log)
	authn := auth.NewAuthenticator(cfg.SupabaseJWTSecret, client, profiles, client, false, log)
	limiter := auth.NewLoginLimiter(time.Second, 5)

	api := v1.NewAPI(v1.Deps{
		Config: cfg, Log: log, Backend: client, Auth: authn,
		Profiles: profiles, Courses: courses, Media: store, Limiter: limiter,
	})
	pages, err := web.NewPages(web.Deps{
		Config: cfg, Log: log, Backend: client, Auth: authn,
		Profiles: profiles, Courses: courses, Limiter: limiter,
	})
	require.NoError(t, err)
	return NewServer(cfg, log, api, pages), cfg
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerMountsPagesAndAPI(t *testing.T) {
	s, _ := newTestServer(t, http.StatusOK)
	h := s.Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "SeLaMS")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/health/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"backend":true`)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login")
}

func TestHealthDegradedWhenBackendDown(t *testing.T) {
	s, _ := newTestServer(t, http.StatusServiceUnavailable)
	rec := serve(s.Handler(), httptest.NewRequest(http.MethodGet, "/api/v1/health/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestServesLocalUploads(t *testing.T) {
	s, cfg := newTestServer(t, http.StatusOK)
	dir := filepath.Join(cfg.UploadDir, "covers")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.gif"), []byte("GIF89a<html></html>"), 0644))

	rec := serve(s.Handler(), httptest.NewRequest(http.MethodGet, "/uploads/covers/a.gif", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "GIF89a<html></html>", rec.Body.String())
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	s, _ := newTestServer(t, http.StatusOK)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/courses/", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := serve(s.Handler(), req)
	assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestNewHTTPServer(t *testing.T) {
	s, cfg := newTestServer(t, http.StatusOK)
	cfg.UploadDir = filepath.Join(t.TempDir(), "nested", "uploads")

	srv := s.NewHTTPServer()
	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	_, err := os.Stat(cfg.UploadDir)
	assert.NoError(t, err)
}
