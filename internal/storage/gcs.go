package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

const firebaseDownloadBase = "https://firebasestorage.googleapis.com/v0/b/"

// GCSStore keeps images in a Cloud Storage bucket and returns Firebase
// Storage download URLs, the format web clients of a Firebase project expect.
type GCSStore struct {
	client *gcs.Client
	bucket string
	log    *slog.Logger
}

// NewGCSStore connects to bucket. credentialsJSON may be empty, in which case
// Application Default Credentials are used.
func NewGCSStore(ctx context.Context, bucket, credentialsJSON string, logger *slog.Logger) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: bucket,
		log:    logger.With("adapter", "gcs"),
	}, nil
}

// Upload implements ImageStore.
func (s *GCSStore) Upload(ctx context.Context, r io.Reader, filename, owner string) (string, error) {
	name := ObjectName(owner, filename)
	token := uuid.NewString()

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = ContentType(filename)
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize object %s: %w", name, err)
	}

	s.log.DebugContext(ctx, "image uploaded", slog.String("object", name))
	return s.downloadURL(name, token), nil
}

// Delete implements ImageStore. Missing objects count as deleted.
func (s *GCSStore) Delete(ctx context.Context, rawURL string) error {
	name, ok := s.objectName(rawURL)
	if !ok {
		s.log.DebugContext(ctx, "ignoring foreign image url", slog.String("url", rawURL))
		return nil
	}

	err := s.client.Bucket(s.bucket).Object(name).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("delete object %s: %w", name, err)
	}
	return nil
}

// Ping checks that the bucket is reachable.
func (s *GCSStore) Ping(ctx context.Context) error {
	_, err := s.client.Bucket(s.bucket).Attrs(ctx)
	return err
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) downloadURL(name, token string) string {
	return s.basePath() + url.PathEscape(name) + "?alt=media&token=" + token
}

func (s *GCSStore) basePath() string {
	return firebaseDownloadBase + s.bucket + "/o/"
}

// objectName recovers the object path from a download URL produced by this store.
func (s *GCSStore) objectName(rawURL string) (string, bool) {
	return parseObjectURL(rawURL, s.basePath())
}

// parseObjectURL strips base and any query string, then unescapes the rest.
func parseObjectURL(rawURL, base string) (string, bool) {
	rest, ok := strings.CutPrefix(rawURL, base)
	if !ok {
		return "", false
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest = rest[:i]
	}
	name, err := url.PathUnescape(rest)
	if err != nil || name == "" {
		return "", false
	}
	return name, true
}
