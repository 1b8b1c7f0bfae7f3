package media

import (
	"context"
	"fmt"
	"io"
	"time"

	storage "github.com/supabase-community/storage-go"
)

// SupabaseStore keeps covers in a public Supabase Storage bucket.
type SupabaseStore struct {
	client *storage.Client
	bucket string
}

func NewSupabaseStore(supabaseURL, key, bucket string) *SupabaseStore {
	return &SupabaseStore{
		client: storage.NewClient(supabaseURL+"/storage/v1", key, nil),
		bucket: bucket,
	}
}

func (s *SupabaseStore) Save(_ context.Context, subDir, contentType string, r io.Reader) (string, error) {
	key := objectKey(subDir, contentType, time.Now())
	opts := storage.FileOptions{}
	if contentType != "" {
		opts.ContentType = &contentType
	}
	if _, err := s.client.UploadFile(s.bucket, key, r, opts); err != nil {
		return "", fmt.Errorf("failed to upload to supabase storage: %w", err)
	}
	return key, nil
}

func (s *SupabaseStore) Delete(_ context.Context, key string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{key}); err != nil {
		return fmt.Errorf("failed to delete from supabase storage: %w", err)
	}
	return nil
}

func (s *SupabaseStore) URL(_ context.Context, key string) (string, error) {
	return s.client.GetPublicUrl(s.bucket, key).SignedURL, nil
}
