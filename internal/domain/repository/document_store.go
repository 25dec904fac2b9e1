package repository

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned by DocumentStore.Load when nothing was saved yet.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore persists one opaque document that is always rewritten as a whole.
// Callers serialize access; implementations need not be safe for concurrent writers.
type DocumentStore interface {
	// Load returns the last saved content.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored content.
	Save(ctx context.Context, content []byte) error

	// Location describes where the document lives, for logs and health output.
	Location() string
}
