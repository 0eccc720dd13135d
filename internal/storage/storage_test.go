package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	name := ObjectName("alice@umn.edu", "my photo.JPG")

	parts := strings.Split(name, "/")
	require.Len(t, parts, 3)
	assert.Equal(t, "listings", parts[0])
	assert.Equal(t, "alice@umn.edu", parts[1])
	assert.True(t, strings.HasSuffix(parts[2], "_my_photo.JPG"), parts[2])
	assert.NotEqual(t, name, ObjectName("alice@umn.edu", "my photo.JPG"), "names must be unique")
}

func TestObjectName_StripsTraversal(t *testing.T) {
	name := ObjectName("../../etc", "../../passwd")

	assert.False(t, strings.Contains(name, ".."), name)
	assert.True(t, strings.HasPrefix(name, "listings/"), name)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.png", "photo.png"},
		{"my photo (1).png", "my_photo__1_.png"},
		{"..", "file"},
		{"", "file"},
		{"a/b", "a_b"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize(tt.in))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("a.PNG"))
	assert.Equal(t, "image/jpeg", ContentType("a.jpg"))
	assert.Equal(t, "application/octet-stream", ContentType("noext"))
}

func TestGCSStore_URLRoundTrip(t *testing.T) {
	s := &GCSStore{bucket: "marketplace.appspot.com"}
	name := "listings/alice@umn.edu/01HZX_photo.png"

	u := s.downloadURL(name, "tok")
	assert.True(t, strings.HasPrefix(u, "https://firebasestorage.googleapis.com/v0/b/marketplace.appspot.com/o/listings%2F"), u)
	assert.Contains(t, u, "?alt=media&token=tok")

	got, ok := s.objectName(u)
	require.True(t, ok)
	assert.Equal(t, name, got)
}

func TestGCSStore_ForeignURL(t *testing.T) {
	s := &GCSStore{bucket: "marketplace.appspot.com"}

	tests := []string{
		"https://example.com/image.png",
		"https://firebasestorage.googleapis.com/v0/b/other-bucket/o/listings%2Fa.png?alt=media",
		"https://firebasestorage.googleapis.com/v0/b/marketplace.appspot.com/o/",
		"",
	}
	for _, u := range tests {
		_, ok := s.objectName(u)
		assert.False(t, ok, u)
	}
}

func TestLocalStore_UploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080/")
	require.NoError(t, err)
	ctx := context.Background()

	u, err := s.Upload(ctx, strings.NewReader("png-bytes"), "bike.png", "bob@umn.edu")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(u, "http://localhost:8080/uploads/listings/bob@umn.edu/"), u)

	rel := strings.TrimPrefix(u, "http://localhost:8080/uploads/")
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Delete(ctx, u))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))

	// Deleting twice is fine.
	assert.NoError(t, s.Delete(ctx, u))
}

func TestLocalStore_DeleteIgnoresOutsidePaths(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(dir, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	s, err := NewLocalStore(filepath.Join(dir, "uploads"), "http://localhost:8080")
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), "http://localhost:8080/uploads/listings/../../keep.txt"))
	require.NoError(t, s.Delete(context.Background(), "https://cdn.example.com/keep.txt"))

	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	u, err := s.Upload(ctx, strings.NewReader("data"), "a.png", "alice@umn.edu")
	require.NoError(t, err)

	data, ok := s.Get(u)
	require.True(t, ok)
	assert.Equal(t, "data", string(data))
	assert.Equal(t, []string{u}, s.URLs())

	require.NoError(t, s.Delete(ctx, u))
	assert.Empty(t, s.URLs())
}

func TestLocalStore_Ping(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	s, err := NewLocalStore(dir, "http://localhost:8080")
	require.NoError(t, err)

	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, s.Ping(context.Background()))
}
