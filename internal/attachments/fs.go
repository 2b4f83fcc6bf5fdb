package attachments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// validHash matches a lowercase hex-encoded SHA256 hash (64 characters).
var validHash = regexp.MustCompile(`^[0-9a-f]{64}$`)

// FSStore implements Store on the local filesystem. Files live in a
// two-level tree keyed by the first two characters of the hash, each with a
// JSON sidecar holding its metadata.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem-backed attachment store rooted at root.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create attachment root: %w", err)
	}
	return &FSStore{root: root}, nil
}

// ValidHash reports whether hash is a well-formed attachment key.
func ValidHash(hash string) bool {
	return validHash.MatchString(hash)
}

// Has reports whether an attachment exists.
func (s *FSStore) Has(_ context.Context, hash string) (bool, error) {
	if !ValidHash(hash) {
		return false, nil
	}
	_, err := os.Stat(s.filePath(hash))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat attachment %s: %w", hash, err)
	}
	return true, nil
}

// Open returns the attachment contents and metadata.
func (s *FSStore) Open(_ context.Context, hash string) (io.ReadCloser, *Meta, error) {
	if !ValidHash(hash) {
		return nil, nil, ErrNotFound
	}
	meta, err := s.readMeta(hash)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("read attachment meta %s: %w", hash, err)
	}

	f, err := os.Open(s.filePath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("open attachment %s: %w", hash, err)
	}
	return f, meta, nil
}

// Put streams r into a temp file while hashing it, then renames it into
// place under its hash.
func (s *FSStore) Put(_ context.Context, r io.Reader, contentType string, maxSize int64) (*Meta, error) {
	tmpFile, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmpFile, hasher), r)
	if err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("write attachment data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if maxSize > 0 && n > maxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxSize)
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	meta := &Meta{
		Hash:        hex.EncodeToString(hasher.Sum(nil)),
		ContentType: contentType,
		Size:        n,
	}

	dest := s.filePath(meta.Hash)
	if _, err := os.Stat(dest); err == nil {
		return meta, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return nil, fmt.Errorf("rename attachment: %w", err)
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal attachment meta: %w", err)
	}
	if err := os.WriteFile(s.metaPath(meta.Hash), data, 0644); err != nil {
		return nil, fmt.Errorf("write attachment meta: %w", err)
	}
	return meta, nil
}

// Delete removes an attachment and its metadata.
func (s *FSStore) Delete(_ context.Context, hash string) error {
	if !ValidHash(hash) {
		return nil
	}
	os.Remove(s.filePath(hash))
	os.Remove(s.metaPath(hash))
	return nil
}

// List returns every stored hash by walking the directory tree.
func (s *FSStore) List(_ context.Context) ([]string, error) {
	hashes := []string{}
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".meta") || strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) == 2 {
			hashes = append(hashes, parts[0]+parts[1])
		}
		return nil
	})
	return hashes, err
}

func (s *FSStore) filePath(hash string) string {
	return filepath.Join(s.root, hash[:2], hash[2:])
}

func (s *FSStore) metaPath(hash string) string {
	return s.filePath(hash) + ".meta"
}

func (s *FSStore) readMeta(hash string) (*Meta, error) {
	data, err := os.ReadFile(s.metaPath(hash))
	if err != nil {
		return nil, err
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
