// Package storage stores listing images and hands back public URLs for them.
package storage

import (
	"context"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/oklog/ulid/v2"
)

// objectPrefix is the top-level folder for listing images.
const objectPrefix = "listings"

const maxFilenameLength = 100

// ImageStore is implemented by every image backend.
type ImageStore interface {
	// Upload stores the image read from r and returns its public URL.
	Upload(ctx context.Context, r io.Reader, filename, owner string) (string, error)
	// Delete removes the image behind url. URLs that do not belong to the
	// store are ignored.
	Delete(ctx context.Context, url string) error
}

// ObjectName builds the object path listings/{owner}/{unique}_{filename}.
func ObjectName(owner, filename string) string {
	return path.Join(objectPrefix, sanitize(owner), ulid.Make().String()+"_"+sanitize(path.Base(filename)))
}

// ContentType guesses the MIME type of filename from its extension.
func ContentType(filename string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// sanitize keeps a conservative character set so names are safe both as
// object keys and as file system paths.
func sanitize(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_', r == '@':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	for strings.Contains(out, "..") {
		out = strings.ReplaceAll(out, "..", "_")
	}
	if out == "" {
		out = "file"
	}
	if len(out) > maxFilenameLength {
		out = out[len(out)-maxFilenameLength:]
	}
	return out
}
