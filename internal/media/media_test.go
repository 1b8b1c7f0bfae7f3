package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/selams/selams-web/internal/config"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewLocalStore(dir, "http://localhost:8080/")

	key, err := s.Save(ctx, "covers/c1", "image/png", strings.NewReader("img"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "covers/c1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	b, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "img", string(b))

	url, err := s.URL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/"+key, url)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key), "deleting a missing key is not an error")
}

func TestObjectKey(t *testing.T) {
	now := time.Unix(0, 42)
	assert.Equal(t, "covers/42.jpg", objectKey("/covers/", "image/jpeg", now))
	assert.Equal(t, "covers/42.gif", objectKey("covers", "image/gif", now))
	assert.Equal(t, "covers/42", objectKey("covers", "text/html; charset=utf-8", now))
}

func TestImageExtension(t *testing.T) {
	tests := []struct {
		contentType string
		ext         string
		ok          bool
	}{
		{"image/png", ".png", true},
		{"image/jpeg", ".jpg", true},
		{"IMAGE/GIF", ".gif", true},
		{"image/webp", ".webp", true},
		{"image/svg+xml", "", false},
		{"text/html; charset=utf-8", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		ext, ok := ImageExtension(tt.contentType)
		assert.Equal(t, tt.ext, ext, tt.contentType)
		assert.Equal(t, tt.ok, ok, tt.contentType)
	}
}

func TestNew(t *testing.T) {
	s, err := New(&config.Config{MediaBackend: "local", UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, s)

	_, err = New(&config.Config{MediaBackend: "r2"})
	assert.Error(t, err)

	_, err = New(&config.Config{MediaBackend: "ftp"})
	assert.Error(t, err)

	s, err = New(&config.Config{MediaBackend: "supabase", SupabaseURL: "https://x.supabase.co", SupabaseAnonKey: "k", CoverBucket: "covers"})
	require.NoError(t, err)
	assert.IsType(t, &SupabaseStore{}, s)
}
