package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"doc-qa/internal/embeddings"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SaveEmbeddedDocument(ctx context.Context, source string, skipLines int, chunks []Chunk, vectors []embeddings.Vector, model string) (Document, error) {
	args := m.Called(ctx, source, skipLines, chunks, vectors, model)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) ListChunks(ctx context.Context, docID uuid.UUID) ([]Chunk, error) {
	args := m.Called(ctx, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Chunk), args.Error(1)
}
