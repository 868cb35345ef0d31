package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"pdfsearch/internal/domain"
	"pdfsearch/internal/hash"
)

// DefaultTopK is the number of hits returned per query.
const DefaultTopK = 3

// Pipeline orchestrates segmentation, embedding, and indexing for
// ingestion, and embedding plus top-k search for queries. It holds no
// mutable session state: every call is a function of its inputs plus the
// external stores.
type Pipeline struct {
	segmenter domain.Segmenter
	provider  domain.EmbeddingProvider
	index     domain.VectorIndex
	history   domain.ChatStore
	logger    *log.Logger
	topK      int
}

// IngestResult reports the identity and size of an ingested document.
// ContentHash is set even on a duplicate so callers can load prior history.
type IngestResult struct {
	ContentHash string
	DisplayName string
	Pages       int
	Chunks      int
}

// NewPipeline assembles the retrieval pipeline.
func NewPipeline(segmenter domain.Segmenter, provider domain.EmbeddingProvider, index domain.VectorIndex, history domain.ChatStore, logger *log.Logger, topK int) *Pipeline {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		segmenter: segmenter,
		provider:  provider,
		index:     index,
		history:   history,
		logger:    logger,
		topK:      topK,
	}
}

// Ingest hashes the source, creates the document's collection, and indexes
// its chunks. Collection creation happens before any segmentation or
// embedding: an already-existing collection short-circuits with
// ErrDuplicateDocument and zero embedding work. On a mid-ingestion failure
// the half-built collection is removed (best effort) so the upload can be
// retried.
func (p *Pipeline) Ingest(ctx context.Context, src io.Reader, displayName string) (*IngestResult, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	digest, err := hash.Sum(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	created, err := p.index.CreateCollection(ctx, digest, p.provider.Dimension(), domain.DistanceCosine)
	if err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	if !created {
		p.logger.Info("document already ingested", "hash", short(digest), "name", displayName)
		return &IngestResult{ContentHash: digest, DisplayName: displayName}, domain.ErrDuplicateDocument
	}

	chunks, pages, err := p.segmenter.Segment(data)
	if err != nil {
		p.rollback(ctx, digest)
		return nil, err
	}
	if len(chunks) == 0 {
		p.rollback(ctx, digest)
		return nil, fmt.Errorf("%s: %w", displayName, domain.ErrNoSearchableContent)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.provider.EmbedBatch(ctx, texts)
	if err != nil {
		p.rollback(ctx, digest)
		return nil, fmt.Errorf("embedding chunks: %w", err)
	}

	records := make([]domain.Record, len(chunks))
	for i, c := range chunks {
		records[i] = domain.Record{
			ID:     i,
			Vector: vectors[i],
			Payload: domain.Payload{
				Text:     c.Text,
				Page:     c.Page,
				Provider: p.provider.Name(),
			},
		}
	}
	if err := p.index.Upload(ctx, digest, records); err != nil {
		p.rollback(ctx, digest)
		return nil, fmt.Errorf("uploading records: %w", err)
	}

	if err := p.history.SaveDocument(ctx, domain.DocumentInfo{
		ContentHash: digest,
		DisplayName: displayName,
		Provider:    p.provider.Name(),
		Pages:       pages,
	}); err != nil {
		p.logger.Warn("failed to record document in chat store", "hash", short(digest), "err", err)
	}

	p.logger.Info("document ingested",
		"hash", short(digest), "name", displayName, "pages", pages, "chunks", len(chunks), "provider", p.provider.Name())
	return &IngestResult{ContentHash: digest, DisplayName: displayName, Pages: pages, Chunks: len(chunks)}, nil
}

// Query embeds the question with the configured provider and returns the
// top-k source pages by similarity. The provider recorded at ingestion time
// must match the configured one; otherwise the call is rejected before any
// embedding.
func (p *Pipeline) Query(ctx context.Context, contentHash, text string) ([]domain.PageHit, error) {
	doc, err := p.history.Document(ctx, contentHash)
	if err == nil && doc.Provider != p.provider.Name() {
		return nil, fmt.Errorf("collection %s was built with provider %s, configured provider is %s: %w",
			short(contentHash), doc.Provider, p.provider.Name(), domain.ErrProviderMismatch)
	}

	vector, err := p.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	hits, err := p.index.Query(ctx, contentHash, vector, p.topK)
	if err != nil {
		return nil, err
	}
	pages := make([]domain.PageHit, len(hits))
	for i, h := range hits {
		pages[i] = domain.PageHit{Page: h.Payload.Page, Score: h.Score}
	}
	return pages, nil
}

// Ask runs a query and records both the question and the formatted answer
// in the document's chat history. History failures are logged, not
// propagated; history is advisory.
func (p *Pipeline) Ask(ctx context.Context, contentHash, question string) (string, []domain.PageHit, error) {
	hits, err := p.Query(ctx, contentHash, question)
	if err != nil {
		return "", nil, err
	}
	answer := FormatHits(hits)
	if err := p.history.SaveTurn(ctx, contentHash, domain.RoleUser, question); err != nil {
		p.logger.Warn("failed to save user turn", "hash", short(contentHash), "err", err)
	}
	if err := p.history.SaveTurn(ctx, contentHash, domain.RoleAssistant, answer); err != nil {
		p.logger.Warn("failed to save assistant turn", "hash", short(contentHash), "err", err)
	}
	return answer, hits, nil
}

// History returns a document's stored chat turns.
func (p *Pipeline) History(ctx context.Context, contentHash string) ([]domain.ChatTurn, error) {
	return p.history.Turns(ctx, contentHash)
}

// Remove deletes a document's collection and chat history.
func (p *Pipeline) Remove(ctx context.Context, contentHash string) error {
	if err := p.index.DeleteCollection(ctx, contentHash); err != nil {
		return err
	}
	if err := p.history.Remove(ctx, contentHash); err != nil {
		p.logger.Warn("failed to remove chat history", "hash", short(contentHash), "err", err)
	}
	p.logger.Info("document removed", "hash", short(contentHash))
	return nil
}

// HashDocument computes a document's content hash without ingesting it,
// for callers that need the identity of an existing file (removal, lookup).
func HashDocument(src io.Reader) (string, error) {
	return hash.Sum(src)
}

// FormatHits renders ranked pages and scores as an assistant reply.
func FormatHits(hits []domain.PageHit) string {
	if len(hits) == 0 {
		return "No relevant pages found."
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("page %d (score %.3f)", h.Page, h.Score)
	}
	return "You can find out more about your question at: " + strings.Join(parts, ", ")
}

func (p *Pipeline) rollback(ctx context.Context, digest string) {
	if err := p.index.DeleteCollection(ctx, digest); err != nil {
		p.logger.Warn("failed to clean up collection after ingest failure", "hash", short(digest), "err", err)
	}
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
