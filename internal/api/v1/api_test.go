package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/selams/selams-web/internal/auth"
	"github.com/selams/selams-web/internal/backend"
	"github.com/selams/selams-web/internal/cache"
	"github.com/selams/selams-web/internal/catalog"
	"github.com/selams/selams-web/internal/config"
	"github.com/selams/selams-web/internal/media"
	"github.com/selams/selams-web/internal/models"
	"github.com/selams/selams-web/internal/service"
)

const jwtSecret = "api-test-secret"

type fakeBackend struct {
	healthErr error
	signedOut []string
}

func (f *fakeBackend) SignInWithPassword(_ context.Context, email, password string) (*backend.Session, error) {
	if password != "correct-horse" {
		return nil, backend.ErrInvalidCredentials
	}
	return &backend.Session{AccessToken: "at-" + email, RefreshToken: "rt", ExpiresIn: 3600, User: backend.User{ID: "u-student"}}, nil
}

func (f *fakeBackend) RefreshSession(_ context.Context, rt string) (*backend.Session, error) {
	if rt != "rt" {
		return nil, backend.ErrInvalidCredentials
	}
	return &backend.Session{AccessToken: "at-new", RefreshToken: "rt-2", ExpiresIn: 3600, User: backend.User{ID: "u-student"}}, nil
}

func (f *fakeBackend) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

func (f *fakeBackend) Health(context.Context) error { return f.healthErr }

func (f *fakeBackend) AvatarURL(ref *string) string {
	if ref == nil {
		return ""
	}
	return "https://cdn.test/" + *ref
}

type fakeProfiles map[string]*models.Profile

func (f fakeProfiles) GetProfile(_ context.Context, _, id string) (*models.Profile, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, backend.ErrNotFound
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("down") }

type harness struct {
	handler http.Handler
	backend *fakeBackend
	catalog *catalog.Static
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, zap.NewNop(), media.NewLocalStore(t.TempDir(), "http://localhost:8080"))
}

func newHarnessWith(t *testing.T, log *zap.Logger, store media.Store) *harness {
	t.Helper()
	avatar := "u-teacher/me.png"
	profiles := service.NewProfileService(fakeProfiles{
		"u-student": {ID: "u-student", Role: models.RoleStudent},
		"u-teacher": {ID: "u-teacher", Role: models.RoleTeacher, AvatarURL: &avatar},
	}, cache.NewMemory(time.Minute), log)
	b := &fakeBackend{}
	cat := catalog.NewSample()
	cfg := &config.Config{}

	api := NewAPI(Deps{
		Config:   cfg,
		Log:      log,
		Backend:  b,
		Auth:     auth.NewAuthenticator(jwtSecret, nil, profiles, b, false, log),
		Profiles: profiles,
		Courses:  service.NewCourseService(cat, store, log),
		Media:    store,
		Limiter:  auth.NewLoginLimiter(time.Minute, 3),
	})
	return &harness{handler: api.Routes(), backend: b, catalog: cat}
}

func token(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Email: sub + "@selams.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return s
}

func (h *harness) do(t *testing.T, method, path, user string, body []byte, contentType string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.RemoteAddr = "10.0.0.1:5555"
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func TestProtectedRoutesNeedSession(t *testing.T) {
	h := newHarness(t)
	for _, p := range []string{"/me", "/nav", "/dashboard", "/courses/", "/courses/1"} {
		rec, resp := h.do(t, http.MethodGet, p, "", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, p)
		assert.False(t, resp.Success)
	}
}

func TestNavByRole(t *testing.T) {
	h := newHarness(t)

	_, resp := h.do(t, http.MethodGet, "/nav?path=/teacher/courses", "u-teacher", nil, "")
	entries := resp.Data.([]interface{})
	require.Len(t, entries, 4)
	second := entries[1].(map[string]interface{})
	assert.Equal(t, "/teacher/courses", second["path"])
	assert.Equal(t, "My Courses", second["label"])
	assert.Equal(t, true, second["active"])

	// No profile row: student menu.
	_, resp = h.do(t, http.MethodGet, "/nav", "u-ghost", nil, "")
	first := resp.Data.([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "/student/dashboard", first["path"])
}

func TestMe(t *testing.T) {
	h := newHarness(t)
	rec, resp := h.do(t, http.MethodGet, "/me", "u-teacher", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	me := resp.Data.(map[string]interface{})
	assert.Equal(t, "teacher", me["role"])
	assert.Equal(t, "/teacher/dashboard", me["home"])
	assert.Equal(t, "https://cdn.test/u-teacher/me.png", me["avatar_url"])
	assert.Equal(t, "u-teacher@selams.test", me["name"])
}

func TestDashboardAndCourses(t *testing.T) {
	h := newHarness(t)

	_, resp := h.do(t, http.MethodGet, "/dashboard", "u-student", nil, "")
	d := resp.Data.(map[string]interface{})
	stats := d["stats"].([]interface{})
	assert.Equal(t, "54%", stats[2].(map[string]interface{})["value"])

	_, resp = h.do(t, http.MethodGet, "/courses/", "u-student", nil, "")
	tiles := resp.Data.([]interface{})
	require.Len(t, tiles, 4)
	first := tiles[0].(map[string]interface{})
	assert.Equal(t, "68%", first["percent"])
	assert.Equal(t, "68%", first["bar_width"])
	assert.Equal(t, "in-progress", first["band"])
	assert.Equal(t, "/course/1", first["href"])
}

func TestGetCourseAndOutline(t *testing.T) {
	h := newHarness(t)

	rec, _ := h.do(t, http.MethodGet, "/courses/404", "u-student", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, resp := h.do(t, http.MethodGet, "/courses/1", "u-student", nil, "")
	detail := resp.Data.(map[string]interface{})
	assert.Equal(t, "Your First Component", detail["lesson"].(map[string]interface{})["title"])

	_, resp = h.do(t, http.MethodGet, "/courses/1/outline?toggle=1", "u-student", nil, "")
	outline := resp.Data.(map[string]interface{})
	assert.Equal(t, "0,1", outline["open"])

	_, resp = h.do(t, http.MethodGet, "/courses/1/outline?open=0,1&toggle=1", "u-student", nil, "")
	assert.Equal(t, "0", resp.Data.(map[string]interface{})["open"])

	rec, _ = h.do(t, http.MethodGet, "/courses/1/outline?toggle=x", "u-student", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)

	rec, resp := h.do(t, http.MethodPost, "/auth/login", "", []byte(`{"email":"nope","password":""}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields := resp.Error.(map[string]interface{})
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")

	rec, _ = h.do(t, http.MethodPost, "/auth/login", "", []byte(`{"email":"a@b.co","password":"wrong-pass"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = h.do(t, http.MethodPost, "/auth/login", "", []byte(`{"email":"a@b.co","password":"correct-horse"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "at-a@b.co", resp.Data.(map[string]interface{})["access_token"])
	var names []string
	for _, c := range rec.Result().Cookies() {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{auth.AccessCookie, auth.RefreshCookie}, names)

	// Limiter burst is 3 and all attempts came from one address.
	rec, _ = h.do(t, http.MethodPost, "/auth/login", "", []byte(`{}`), "application/json")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	h := newHarness(t)

	rec, _ := h.do(t, http.MethodPost, "/auth/refresh", "", []byte(`{"refresh_token":"stale"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := h.do(t, http.MethodPost, "/auth/refresh", "", []byte(`{"refresh_token":"rt"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "at-new", resp.Data.(map[string]interface{})["access_token"])

	rec, _ = h.do(t, http.MethodPost, "/auth/logout", "u-student", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, h.backend.signedOut, 1)
	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	rec, resp := h.do(t, http.MethodGet, "/health/", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, resp.Data.(map[string]interface{})["backend"])

	rec = httptest.NewRecorder()
	HealthHandler(&fakeBackend{}, map[string]Pinger{"db": downPinger{}}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func multipartBody(t *testing.T, filename string, content []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf.Bytes(), mw.FormDataContentType()
}

func TestUploadCover(t *testing.T) {
	h := newHarness(t)

	body, ct := multipartBody(t, "cover.png", pngBytes)
	rec, _ := h.do(t, http.MethodPost, "/courses/1/cover", "u-student", body, ct)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body, ct = multipartBody(t, "notes.txt", []byte("plain text, not an image"))
	rec, _ = h.do(t, http.MethodPost, "/courses/1/cover", "u-teacher", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, "cover.png", pngBytes)
	rec, resp := h.do(t, http.MethodPost, "/courses/1/cover", "u-teacher", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := resp.Data.(map[string]interface{})
	key := data["key"].(string)
	assert.True(t, strings.HasPrefix(key, "covers/1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Equal(t, "http://localhost:8080/uploads/"+key, data["url"])

	c, err := h.catalog.GetCourse(context.Background(), "1", "")
	require.NoError(t, err)
	assert.Equal(t, key, c.CoverKey)
}

func TestUploadCoverIgnoresClientExtension(t *testing.T) {
	h := newHarness(t)

	polyglot := []byte("GIF89a<html><script>alert(document.cookie)</script></html>")
	body, ct := multipartBody(t, "evil.html", polyglot)
	rec, resp := h.do(t, http.MethodPost, "/courses/1/cover", "u-teacher", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	key := resp.Data.(map[string]interface{})["key"].(string)
	assert.True(t, strings.HasSuffix(key, ".gif"), key)
	assert.NotContains(t, key, ".html")

	svg := []byte(`<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)
	body, ct = multipartBody(t, "cover.svg", svg)
	rec, _ = h.do(t, http.MethodPost, "/courses/1/cover", "u-teacher", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type unresolvedStore struct {
	media.Store
}

func (unresolvedStore) URL(context.Context, string) (string, error) {
	return "", errors.New("presign failed")
}

func TestUploadCoverLogsUnresolvedURL(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := newHarnessWith(t, zap.New(core), unresolvedStore{media.NewLocalStore(t.TempDir(), "http://localhost:8080")})

	body, ct := multipartBody(t, "cover.png", pngBytes)
	rec, resp := h.do(t, http.MethodPost, "/courses/1/cover", "u-teacher", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "", resp.Data.(map[string]interface{})["url"])

	entries := logs.FilterMessage("resolve cover url").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "presign failed", entries[0].ContextMap()["error"])
}
