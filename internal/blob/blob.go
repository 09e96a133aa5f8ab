// Package blob is a content-addressed file store for photo bytes.
//
// A reference has the form "sha256:<hex>". Identical bytes share one file,
// so Put is idempotent and references are stable across installs, which
// lets bundles carry photos by reference.
package blob

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const refPrefix = "sha256:"

var (
	// ErrNotFound is returned by Get for an unknown reference.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidRef is returned for references not of the form sha256:<hex>.
	ErrInvalidRef = errors.New("invalid blob reference")
)

// Store keeps blobs as files named by their digest, fanned out into
// two-character subdirectories.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create blob dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Put stores data and returns its reference.
//
// Pattern: temp file -> write + SHA-256 -> fsync -> atomic rename.
// The temp file is removed on error.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	hasher := sha256.New()
	if _, err := io.Copy(tmp, io.TeeReader(bytes.NewReader(data), hasher)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("fsync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close blob: %w", err)
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	path := s.path(sum)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("create blob shard: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename blob: %w", err)
	}
	return refPrefix + sum, nil
}

// Get returns the bytes behind ref.
func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum, err := parseRef(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(sum))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", ref, err)
	}
	return data, nil
}

// Has reports whether ref is stored.
func (s *Store) Has(ref string) bool {
	sum, err := parseRef(ref)
	if err != nil {
		return false
	}
	_, err = os.Stat(s.path(sum))
	return err == nil
}

// Delete removes ref. Returns nil if the blob does not exist.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sum, err := parseRef(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(sum)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete blob %s: %w", ref, err)
	}
	return nil
}

func (s *Store) path(sum string) string {
	return filepath.Join(s.dir, sum[:2], sum)
}

func parseRef(ref string) (string, error) {
	sum, ok := strings.CutPrefix(ref, refPrefix)
	if !ok || len(sum) != sha256.Size*2 {
		return "", fmt.Errorf("%q: %w", ref, ErrInvalidRef)
	}
	if _, err := hex.DecodeString(sum); err != nil {
		return "", fmt.Errorf("%q: %w", ref, ErrInvalidRef)
	}
	return strings.ToLower(sum), nil
}
