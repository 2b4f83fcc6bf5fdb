// Package attachments provides content-addressable file storage for candidate
// resumes and file-upload answers. Files are named by the SHA256 of their
// contents, so uploading the same file twice stores it once.
package attachments

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a requested attachment does not exist.
var ErrNotFound = errors.New("attachment not found")

// ErrTooLarge is returned when an upload exceeds the size limit.
var ErrTooLarge = errors.New("attachment too large")

// Meta describes a stored attachment.
type Meta struct {
	Hash        string `json:"hash"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Store defines the contract for attachment storage.
type Store interface {
	// Has reports whether an attachment with the given hash exists.
	Has(ctx context.Context, hash string) (bool, error)

	// Open returns a reader for the attachment and its metadata.
	// Returns ErrNotFound if the attachment does not exist.
	Open(ctx context.Context, hash string) (io.ReadCloser, *Meta, error)

	// Put reads r to EOF, stores it under its SHA256 and returns the
	// metadata. Storing identical content twice is a no-op. maxSize <= 0
	// means unlimited.
	Put(ctx context.Context, r io.Reader, contentType string, maxSize int64) (*Meta, error)

	// Delete removes an attachment. No error if it doesn't exist.
	Delete(ctx context.Context, hash string) error

	// List returns every stored hash.
	List(ctx context.Context) ([]string, error)
}
