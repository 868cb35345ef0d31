package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pdfsearch/internal/domain"
)

const (
	// UploadBatchSize bounds the payload of a single points upsert.
	UploadBatchSize = 1000

	defaultTimeout = 15 * time.Second
	defaultTopK    = 3
)

// Index is a REST client to Qdrant. Each document gets its own collection
// named after its content hash.
type Index struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Config contains connection details for a Qdrant instance.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// NewIndex creates a Qdrant-backed vector index client.
func NewIndex(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Index{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// CreateCollection creates the named collection with the given vector size
// and distance metric. An already-existing collection reports false without
// error; attempting creation first avoids a check-then-act gap.
func (x *Index) CreateCollection(ctx context.Context, name string, dimension int, distance string) (bool, error) {
	if dimension <= 0 {
		return false, fmt.Errorf("invalid dimension %d", dimension)
	}
	if distance == "" {
		distance = domain.DistanceCosine
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": distance,
		},
	}
	status, payload, err := x.do(ctx, http.MethodPut, "/collections/"+name, body)
	if err != nil {
		return false, err
	}
	if status == http.StatusConflict || (status >= 400 && bytes.Contains(payload, []byte("already exists"))) {
		return false, nil
	}
	if status >= 300 {
		return false, fmt.Errorf("qdrant create collection %s: status %d: %s", name, status, snippet(payload))
	}
	return true, nil
}

// Upload upserts records in batches of UploadBatchSize with wait=true so
// points are searchable once the call returns.
func (x *Index) Upload(ctx context.Context, name string, records []domain.Record) error {
	for start := 0; start < len(records); start += UploadBatchSize {
		end := start + UploadBatchSize
		if end > len(records) {
			end = len(records)
		}
		points := make([]map[string]any, 0, end-start)
		for _, rec := range records[start:end] {
			points = append(points, map[string]any{
				"id":     rec.ID,
				"vector": rec.Vector,
				"payload": map[string]any{
					"text":     rec.Payload.Text,
					"page":     rec.Payload.Page,
					"provider": rec.Payload.Provider,
				},
			})
		}
		status, payload, err := x.do(ctx, http.MethodPut, "/collections/"+name+"/points?wait=true", map[string]any{"points": points})
		if err != nil {
			return err
		}
		if status == http.StatusNotFound {
			return fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
		}
		if status >= 300 {
			return fmt.Errorf("qdrant upload to %s: status %d: %s", name, status, snippet(payload))
		}
	}
	return nil
}

// Query returns the top-k nearest points with payloads, ordered by
// descending similarity as ranked by Qdrant.
func (x *Index) Query(ctx context.Context, name string, vector []float64, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		limit = defaultTopK
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	status, payload, err := x.do(ctx, http.MethodPost, "/collections/"+name+"/points/search", body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	if status >= 300 {
		return nil, fmt.Errorf("qdrant search %s: status %d: %s", name, status, snippet(payload))
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("decoding qdrant search response: %w", err)
	}
	hits := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		hit := domain.ScoredChunk{Score: r.Score}
		if v, ok := r.Payload["text"].(string); ok {
			hit.Payload.Text = v
		}
		if v, ok := r.Payload["page"].(float64); ok {
			hit.Payload.Page = int(v)
		}
		if v, ok := r.Payload["provider"].(string); ok {
			hit.Payload.Provider = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteCollection drops the collection and all of its points.
func (x *Index) DeleteCollection(ctx context.Context, name string) error {
	status, payload, err := x.do(ctx, http.MethodDelete, "/collections/"+name, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	if status >= 300 {
		return fmt.Errorf("qdrant delete collection %s: status %d: %s", name, status, snippet(payload))
	}
	// Qdrant reports result=false when there was nothing to delete.
	var resp struct {
		Result bool `json:"result"`
	}
	if err := json.Unmarshal(payload, &resp); err == nil && !resp.Result {
		return fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	return nil
}

func (x *Index) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, x.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}
	resp, err := x.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("qdrant %s %s: reading response: %w", method, path, err)
	}
	return resp.StatusCode, payload, nil
}

func snippet(payload []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(payload))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
