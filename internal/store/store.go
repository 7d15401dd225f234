package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"doc-qa/internal/embeddings"
)

var ErrDocumentNotFound = errors.New("document not found")

// Document is one embedded source, identified by path and skipped header lines.
type Document struct {
	ID        uuid.UUID
	Source    string
	SkipLines int
	CreatedAt time.Time
}

type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Index      int
	Text       string
	TokenCount int
}

// Store persists the output of the embedding pipeline. It is write-mostly:
// vectors are kept for downstream use, not searched here.
type Store interface {
	// SaveEmbeddedDocument writes the document, its chunks and one vector per
	// chunk in a single transaction. On error nothing is written.
	SaveEmbeddedDocument(ctx context.Context, source string, skipLines int, chunks []Chunk, vectors []embeddings.Vector, model string) (Document, error)
	// ListChunks returns a document's chunks in order, or ErrDocumentNotFound.
	ListChunks(ctx context.Context, docID uuid.UUID) ([]Chunk, error)
}
