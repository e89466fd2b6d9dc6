package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// KeyPrefix is the directory every attachment is stored under.
const KeyPrefix = "grievances"

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrTooLarge       = errors.New("object exceeds the upload size limit")
	ErrInvalidKey     = errors.New("invalid object key")
)

// BlobStore persists attachment bytes. Keys returned by Save are opaque to
// callers and are what Open, Delete and MimeType accept.
type BlobStore interface {
	// Save streams r under a fresh key derived from name and reports what was written.
	Save(ctx context.Context, name string, r io.Reader) (Object, error)

	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object. It reports false without error when nothing
	// was stored under key, so repeated deletes are safe.
	Delete(ctx context.Context, key string) (bool, error)

	MimeType(ctx context.Context, key string) (string, error)
}

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Object struct {
	Path        string `json:"path"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// NewKey builds `grievances/<uuid><ext>` keeping only the original extension.
func NewKey(name string) string {
	ext := strings.ToLower(filepath.Ext(SanitizeFilename(name)))
	return path.Join(KeyPrefix, uuid.NewString()+ext)
}

// SanitizeFilename drops any directory part and characters that are unsafe
// in object keys or Content-Disposition headers.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, strings.ContainsRune(`"/\:*?<>|`, r):
			return '_'
		}
		return r
	}, name)
}

// sniff reads the head of r to detect its content type and returns a reader
// that still yields the full stream.
func sniff(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// limitReader fails with ErrTooLarge once more than max bytes were read.
// A non-positive max disables the limit.
type limitReader struct {
	r   io.Reader
	max int64
	n   int64
}

func newLimitReader(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return &limitReader{r: r, max: max}
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.n += int64(n)
	if l.n > l.max {
		return n, ErrTooLarge
	}
	return n, err
}

func validKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(key), "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
