// Package assets is the cover-image storage collaborator. The room service
// only sees the Storage interface; the Supabase implementation is wiring.
package assets

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	storage "github.com/supabase-community/storage-go"
)

// Storage uploads cover images and deletes replaced ones.
type Storage interface {
	// Upload stores the object and returns its public URL.
	Upload(ctx context.Context, r io.Reader, filename, contentType string) (string, error)

	// Delete removes a previously uploaded object by its URL. Callers
	// treat failures as non-fatal.
	Delete(ctx context.Context, url string) error
}

type SupabaseStorage struct {
	client *storage.Client
	bucket string
}

func NewSupabaseStorage(projectURL, apiKey, bucket string) *SupabaseStorage {
	return &SupabaseStorage{
		client: storage.NewClient(projectURL+"/storage/v1", apiKey, nil),
		bucket: bucket,
	}
}

func (s *SupabaseStorage) Upload(ctx context.Context, r io.Reader, filename, contentType string) (string, error) {
	objectPath := uuid.NewString() + path.Ext(filename)

	upsert := true
	options := storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}

	if _, err := s.client.UploadFile(s.bucket, objectPath, r, options); err != nil {
		return "", fmt.Errorf("upload to bucket %s: %w", s.bucket, err)
	}

	public := s.client.GetPublicUrl(s.bucket, objectPath)
	return public.SignedURL, nil
}

func (s *SupabaseStorage) Delete(ctx context.Context, url string) error {
	// Objects are stored flat under the bucket, so the last path segment
	// is the object name.
	objectPath := path.Base(url)
	if _, err := s.client.RemoveFile(s.bucket, []string{objectPath}); err != nil {
		return fmt.Errorf("remove from bucket %s: %w", s.bucket, err)
	}
	return nil
}
