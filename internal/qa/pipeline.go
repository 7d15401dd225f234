package qa

import (
	"context"
	"log/slog"
	"sync"

	"doc-qa/internal/chunker"
)

// DocumentLoader returns the normalized text of a source.
type DocumentLoader interface {
	Load(path string, skipLines int) (string, error)
}

// Source identifies the reference document and how many header lines to drop.
type Source struct {
	Path      string
	SkipLines int
}

// Pipeline answers questions about a single reference document.
type Pipeline struct {
	loader        DocumentLoader
	chunker       *chunker.Chunker
	service       *Service
	source        Source
	contextTokens int
	maxDepth      int
	log           *slog.Logger

	// mu guards the memoized context; failed loads are retried.
	mu          sync.Mutex
	loaded      bool
	contextText string
}

func NewPipeline(loader DocumentLoader, ch *chunker.Chunker, svc *Service, src Source, contextTokens, maxDepth int, log *slog.Logger) *Pipeline {
	return &Pipeline{
		loader:        loader,
		chunker:       ch,
		service:       svc,
		source:        src,
		contextTokens: contextTokens,
		maxDepth:      maxDepth,
		log:           log,
	}
}

// Source returns the document this pipeline answers from.
func (p *Pipeline) Source() Source { return p.source }

// Context returns the document text sent with every question. A document
// over the context budget is chunked and its leading chunk is used. The
// result is computed once per pipeline.
func (p *Pipeline) Context() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.contextText, nil
	}

	doc, err := p.loader.Load(p.source.Path, p.source.SkipLines)
	if err != nil {
		return "", err
	}
	chunks := p.chunker.Split(doc, p.contextTokens, p.maxDepth)
	if len(chunks) > 1 {
		p.log.Warn("document exceeds context budget; using leading chunk",
			"source", p.source.Path, "chunks", len(chunks), "context_tokens", p.contextTokens)
	}
	p.contextText, p.loaded = chunks[0], true
	return p.contextText, nil
}

// Ask answers question from the reference document.
func (p *Pipeline) Ask(ctx context.Context, question string) (string, error) {
	contextText, err := p.Context()
	if err != nil {
		return "", err
	}
	return p.service.Answer(ctx, question, contextText)
}
