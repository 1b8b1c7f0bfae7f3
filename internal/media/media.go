// Package media stores course cover images and resolves them to URLs.
package media

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/selams/selams-web/internal/config"
)

// Store persists uploaded objects under opaque keys. The key extension is
// derived from contentType, never from a client-supplied filename.
type Store interface {
	Save(ctx context.Context, subDir, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// New picks the backend named by cfg.MediaBackend.
func New(cfg *config.Config) (Store, error) {
	switch cfg.MediaBackend {
	case "", "local":
		return NewLocalStore(cfg.UploadDir, cfg.UploadBaseURL), nil
	case "r2":
		if cfg.R2Endpoint == "" || cfg.R2BucketName == "" {
			return nil, fmt.Errorf("media: r2 backend needs R2_ENDPOINT and R2_BUCKET_NAME")
		}
		return NewR2Store(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Endpoint, cfg.R2BucketName), nil
	case "supabase":
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseAnonKey, cfg.CoverBucket), nil
	}
	return nil, fmt.Errorf("media: unknown backend %q", cfg.MediaBackend)
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageExtension maps a sniffed image content type to the extension stored
// objects get. Only the types listed are accepted as covers.
func ImageExtension(contentType string) (string, bool) {
	ct := strings.TrimSpace(strings.ToLower(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	ext, ok := imageExtensions[ct]
	return ext, ok
}

// objectKey builds "<subDir>/<unixnano><ext>" with forward slashes. Unknown
// content types get no extension.
func objectKey(subDir, contentType string, now time.Time) string {
	ext, _ := ImageExtension(contentType)
	return strings.Trim(subDir, "/") + "/" + fmt.Sprintf("%d%s", now.UnixNano(), ext)
}
