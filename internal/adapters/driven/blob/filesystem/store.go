// Package filesystem stores raw uploads on local disk and signs
// time-limited download URLs for them.
package filesystem

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/propdocs/internal/core/domain"
	"github.com/custodia-labs/propdocs/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BlobStore = (*Store)(nil)

// DefaultRoute is the HTTP path prefix that serves signed blobs.
const DefaultRoute = "/blobs/"

// Store keeps blobs under a root directory, one file per key.
type Store struct {
	root    string
	secret  []byte
	baseURL string
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithBaseURL sets the URL prefix signed links are built on,
// e.g. "http://localhost:8080/blobs/".
func WithBaseURL(base string) Option {
	return func(s *Store) {
		if base != "" {
			s.baseURL = base
		}
	}
}

// New creates a store rooted at dir. The signing key must be non-empty.
func New(dir, signingKey string, opts ...Option) (*Store, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("%w: blob signing key is required", domain.ErrInvalidInput)
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	s := &Store{
		root:    dir,
		secret:  []byte(signingKey),
		baseURL: DefaultRoute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Put stores data under key, overwriting any existing blob.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

// Fetch returns the blob bytes.
func (s *Store) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Delete removes the blob and any directories it leaves empty.
func (s *Store) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete blob: %w", err)
	}
	for dir := filepath.Dir(p); dir != s.root && strings.HasPrefix(dir, s.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// SignedURL returns a URL for key that Verify accepts until ttl elapses.
func (s *Store) SignedURL(key string, ttl time.Duration) (string, error) {
	if _, err := s.path(key); err != nil {
		return "", err
	}
	if ttl <= 0 {
		return "", domain.NewValidationError("ttl", "must be positive")
	}
	expires := s.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", s.sign(key, expires))
	return strings.TrimSuffix(s.baseURL, "/") + "/" + escapeKey(key) + "?" + q.Encode(), nil
}

// Verify checks a signature produced by SignedURL.
func (s *Store) Verify(key string, expires int64, signature string) error {
	if s.now().Unix() > expires {
		return fmt.Errorf("%w: link expired", domain.ErrInvalidSignature)
	}
	want := s.sign(key, expires)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// Root returns the blob directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(key))
	mac.Write([]byte{'\n'})
	mac.Write([]byte(strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// path maps a key to a file under root, rejecting keys that escape it.
func (s *Store) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", domain.NewValidationError("key", "is not a valid blob key")
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", domain.NewValidationError("key", "is not a valid blob key")
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
