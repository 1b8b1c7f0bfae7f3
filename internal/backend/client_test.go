package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selams/selams-web/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "anon-key")
	require.NoError(t, err)
	return c
}

func TestNewRequiresConfig(t *testing.T) {
	tests := []struct{ url, key string }{
		{"", ""},
		{"https://x.supabase.co", ""},
		{"", "anon"},
		{"   ", "anon"},
	}
	for _, tt := range tests {
		c, err := New(tt.url, tt.key)
		assert.ErrorIs(t, err, ErrMissingConfig)
		assert.Nil(t, c)
	}
}

const profileJSON = `[{
	"id": "u1",
	"display_name": null,
	"role": "teacher",
	"avatar_url": null,
	"created_at": "2024-05-01T10:00:00.123456+00:00",
	"updated_at": "2024-05-02T10:00:00+00:00"
}]`

func TestGetProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("id"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, profileJSON)
	})

	p, err := c.GetProfile(context.Background(), "user-token", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, models.RoleTeacher, p.Role)
	assert.Nil(t, p.DisplayName)
	assert.Nil(t, p.AvatarURL)
	assert.Equal(t, 2024, p.CreatedAt.Year())
	assert.Equal(t, "Guest", p.Name("Guest"))
}

func TestGetProfileNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	_, err := c.GetProfile(context.Background(), "", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetProfileRetriesOnceOnServerError(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(w, http.StatusBadGateway, `{"message":"upstream"}`)
			return
		}
		writeJSON(w, http.StatusOK, profileJSON)
	})
	p, err := c.GetProfile(context.Background(), "", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetProfileGivesUpAfterRetry(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusServiceUnavailable, `{"message":"down"}`)
	})
	_, err := c.GetProfile(context.Background(), "", "u1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, "down", apiErr.Message)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetUserUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"code":401,"error_code":"bad_jwt","msg":"invalid JWT"}`)
	})
	_, err := c.GetUser(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.GetUser(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSignInWithPassword(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "secret" {
			writeJSON(w, http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u1","email":"a@b.c"}}`)
	})

	s, err := c.SignInWithPassword(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, "rt", s.RefreshToken)
	assert.Equal(t, "u1", s.User.ID)

	_, err = c.SignInWithPassword(context.Background(), "a@b.c", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	assert.NoError(t, c.SignOut(context.Background(), "at"))
}

func TestAvatarURL(t *testing.T) {
	c, err := New("https://x.supabase.co", "anon")
	require.NoError(t, err)

	assert.Empty(t, c.AvatarURL(nil))
	empty := ""
	assert.Empty(t, c.AvatarURL(&empty))

	abs := "https://cdn.example/a.png"
	assert.Equal(t, abs, c.AvatarURL(&abs))

	rel := "u1/a.png"
	assert.Contains(t, c.AvatarURL(&rel), "/object/public/avatars/u1/a.png")
}

func TestTimeoutSurvivesCustomHTTPClient(t *testing.T) {
	c, err := New("https://x.supabase.co", "anon", WithHTTPClient(&http.Client{}))
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, c.http.GetClient().Timeout)

	c, err = New("https://x.supabase.co", "anon", WithTimeout(3*time.Second), WithHTTPClient(&http.Client{}))
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, c.http.GetClient().Timeout)
}
