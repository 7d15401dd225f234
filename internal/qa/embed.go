package qa

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"doc-qa/internal/chunker"
	"doc-qa/internal/embeddings"
	"doc-qa/internal/store"
)

// EmbedResult summarizes one embedding run.
type EmbedResult struct {
	DocumentID uuid.UUID
	Chunks     int
}

// EmbedPipeline chunks a document, embeds every chunk and persists the vectors.
type EmbedPipeline struct {
	loader    DocumentLoader
	chunker   *chunker.Chunker
	embedder  embeddings.Embedder
	store     store.Store
	model     string
	maxTokens int
	maxDepth  int
	log       *slog.Logger
}

func NewEmbedPipeline(loader DocumentLoader, ch *chunker.Chunker, emb embeddings.Embedder, st store.Store, model string, maxTokens, maxDepth int, log *slog.Logger) *EmbedPipeline {
	return &EmbedPipeline{
		loader:    loader,
		chunker:   ch,
		embedder:  emb,
		store:     st,
		model:     model,
		maxTokens: maxTokens,
		maxDepth:  maxDepth,
		log:       log,
	}
}

// Run embeds the source. Vectors are requested before anything is written
// and the document is saved in one transaction, so a failed run leaves the
// store untouched. The stored chunks are read back and counted.
func (p *EmbedPipeline) Run(ctx context.Context, src Source) (EmbedResult, error) {
	doc, err := p.loader.Load(src.Path, src.SkipLines)
	if err != nil {
		return EmbedResult{}, err
	}
	chunks := p.chunker.Chunks(doc, p.maxTokens, p.maxDepth)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return EmbedResult{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return EmbedResult{}, fmt.Errorf("%w: got %d vectors for %d chunks", embeddings.ErrUpstream, len(vectors), len(chunks))
	}

	storeChunks := make([]store.Chunk, len(chunks))
	for i, c := range chunks {
		storeChunks[i] = store.Chunk{Index: c.Index, Text: c.Text, TokenCount: c.TokenCount}
	}
	d, err := p.store.SaveEmbeddedDocument(ctx, src.Path, src.SkipLines, storeChunks, vectors, p.model)
	if err != nil {
		return EmbedResult{}, fmt.Errorf("save embedded document: %w", err)
	}

	stored, err := p.store.ListChunks(ctx, d.ID)
	if err != nil {
		return EmbedResult{}, fmt.Errorf("read back chunks: %w", err)
	}
	if len(stored) != len(chunks) {
		return EmbedResult{}, fmt.Errorf("stored %d chunks for document %s, expected %d", len(stored), d.ID, len(chunks))
	}

	p.log.Info("embedded document", "source", src.Path, "document_id", d.ID, "chunks", len(stored), "model", p.model)
	return EmbedResult{DocumentID: d.ID, Chunks: len(stored)}, nil
}
