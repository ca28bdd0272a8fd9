package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge is returned by Put when the content exceeds the configured limit.
var ErrTooLarge = errors.New("blob exceeds size limit")

// BlobStore holds uploaded images addressed by URL.
type BlobStore interface {
	// Put stores r under name and returns the public URL.
	Put(ctx context.Context, name string, r io.Reader) (string, error)
	// Delete removes the blob referenced by rawURL. A missing blob is not an error.
	Delete(ctx context.Context, rawURL string) error
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]`)

// BlobName builds a unique, path-safe name from an uploaded file name.
func BlobName(original string) string {
	base := filepath.Base(strings.TrimSpace(original))
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "image"
	}
	base = unsafeNameChars.ReplaceAllString(base, "_")
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString()[:8], base)
}

// NameFromURL returns the last path segment of a blob URL.
func NameFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// LocalStore keeps blobs on the local filesystem under Dir and serves them from BaseURL.
type LocalStore struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
}

// NewLocalStore creates the directory if needed.
func NewLocalStore(dir, baseURL string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), MaxBytes: maxBytes}, nil
}

func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name = NameFromURL(name)
	if name == "" {
		return "", errors.New("empty blob name")
	}
	dst := filepath.Join(s.Dir, name)
	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}

	src := r
	if s.MaxBytes > 0 {
		src = &io.LimitedReader{R: r, N: s.MaxBytes + 1}
	}
	written, err := io.Copy(out, src)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.MaxBytes > 0 && written > s.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return s.BaseURL + "/" + name, nil
}

func (s *LocalStore) Delete(ctx context.Context, rawURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := NameFromURL(rawURL)
	if name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob %s: %w", name, err)
	}
	return nil
}
