package store

import (
	"context"
	"errors"

	"docchat/types"
)

var (
	// ErrNotFound means no document exists for the given docId.
	ErrNotFound = errors.New("document not found")
	// ErrCorrupt means a persisted record exists but cannot be parsed.
	ErrCorrupt = errors.New("document record corrupt")
)

// DocStorer persists immutable documents keyed by docId. The raw PDF is kept
// alongside the page record so the external indexing tier can upload the
// original bytes.
type DocStorer interface {
	Save(ctx context.Context, doc types.Document, pdf []byte) error
	Load(ctx context.Context, docID string) (types.Document, error)
	PDF(ctx context.Context, docID string) ([]byte, error)
	// Stat reports whether the persisted page record exists and where it
	// lives, for the debug endpoint.
	Stat(ctx context.Context, docID string) (bool, string)
}
