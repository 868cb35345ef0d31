package domain

import (
	"context"
	"time"
)

// DistanceCosine is the similarity metric used for every collection.
const DistanceCosine = "Cosine"

// Chat roles stored with each turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chunk is a bounded span of text extracted from one page of a document.
// Chunks are ephemeral: they exist between segmentation and upload and are
// persisted only as an embedded vector plus payload.
type Chunk struct {
	Text string
	Page int
}

// Payload is the metadata stored alongside each vector in a collection.
type Payload struct {
	Text     string
	Page     int
	Provider string
}

// Record pairs an embedded vector with its payload. IDs are assigned from
// the position in the ingestion sequence and are unique within a collection.
type Record struct {
	ID      int
	Vector  []float64
	Payload Payload
}

// ScoredChunk is a similarity search hit with its raw score.
type ScoredChunk struct {
	Payload Payload
	Score   float64
}

// PageHit is the user-facing query result: a source page and its score.
// Multiple hits may reference the same page.
type PageHit struct {
	Page  int
	Score float64
}

// DocumentInfo describes an ingested document. The content hash is the
// document's identity; the provider field records which embedding provider
// built its collection.
type DocumentInfo struct {
	ContentHash string
	DisplayName string
	Provider    string
	Pages       int
}

// ChatTurn is one message in a document's chat history.
type ChatTurn struct {
	ID          string
	ContentHash string
	Role        string
	Text        string
	CreatedAt   time.Time
}

// EmbeddingProvider converts text into fixed-dimension numeric vectors.
// Dimension is known at construction time, before any embedding call.
type EmbeddingProvider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// Segmenter extracts page-tagged chunks from raw document bytes and reports
// the page count.
type Segmenter interface {
	Segment(data []byte) ([]Chunk, int, error)
}

// VectorIndex is a namespace of named collections supporting batch insert
// and top-k similarity search. CreateCollection returns false when the
// collection already exists; that return is the duplicate-detection signal,
// not an error.
type VectorIndex interface {
	CreateCollection(ctx context.Context, name string, dimension int, distance string) (bool, error)
	Upload(ctx context.Context, collection string, records []Record) error
	Query(ctx context.Context, collection string, vector []float64, limit int) ([]ScoredChunk, error)
	DeleteCollection(ctx context.Context, name string) error
}

// ChatStore persists documents and their chat history. It is advisory
// state: a turn may survive even if the vector index later diverges.
type ChatStore interface {
	SaveDocument(ctx context.Context, info DocumentInfo) error
	Document(ctx context.Context, contentHash string) (*DocumentInfo, error)
	SaveTurn(ctx context.Context, contentHash, role, text string) error
	Turns(ctx context.Context, contentHash string) ([]ChatTurn, error)
	ListDocuments(ctx context.Context) ([]DocumentInfo, error)
	Remove(ctx context.Context, contentHash string) error
}
