package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"pdfsearch/internal/domain"
)

// Known vector dimensions per embedding model. Unknown models require an
// explicit dimension in the config since the collection schema is fixed
// before the first embedding call.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Client is an OpenAI-compatible embeddings client. Requests are batched to
// respect upstream input limits and retried with exponential backoff on
// rate limiting and server errors.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	dimension  int
	batchSize  int
	maxRetries int
	client     *http.Client
}

// Config configures the embeddings client. The API key is read from the
// environment variable named by APIKeyEnv; a missing key is a
// construction-time error, not a call-time one.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
	Dimension int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	dim := cfg.Dimension
	if dim == 0 {
		dim = modelDimensions[cfg.Model]
	}
	if dim <= 0 {
		return nil, fmt.Errorf("unknown embedding dimension for model %s; set it in the config", cfg.Model)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		timeout:    t,
		dimension:  dim,
		batchSize:  batch,
		maxRetries: 5,
		client:     &http.Client{Timeout: t},
	}, nil
}

// Name identifies this provider variant including the model, since each
// model defines its own vector space.
func (c *Client) Name() string { return "openai/" + c.model }

// Dimension returns the model's fixed vector dimension.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds the texts, issuing one request per batch of at most the
// configured batch size.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedRequest(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (c *Client) embedRequest(ctx context.Context, batch []string) ([][]float64, error) {
	type reqBody struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	var lastErr error
	var retryAfter time.Duration
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt - 1)
			if retryAfter > delay {
				delay = retryAfter
			}
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
			select {
			case <-ctx.Done():
				return nil, c.retryable(ctx.Err())
			case <-time.After(delay):
			}
		}
		retryAfter = 0
		data, _ := json.Marshal(reqBody{Input: batch, Model: c.model})
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, c.fatal(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = c.retryable(err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
					retryAfter = time.Duration(secs) * time.Second
				}
			}
			_ = resp.Body.Close()
			lastErr = c.retryable(fmt.Errorf("embeddings request failed: %s", resp.Status))
			continue
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, c.fatal(fmt.Errorf("embeddings request failed: %s", resp.Status))
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = c.retryable(err)
			continue
		}
		vectors, err := c.decode(payload, len(batch))
		if err != nil {
			// Malformed response is fatal for this request.
			return nil, c.fatal(err)
		}
		return vectors, nil
	}
	if lastErr == nil {
		lastErr = c.retryable(errors.New("no embedding returned"))
	}
	return nil, lastErr
}

func (c *Client) decode(payload []byte, want int) ([][]float64, error) {
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decoding embeddings response: %w", err)
	}
	if len(out.Data) != want {
		return nil, fmt.Errorf("embeddings response has %d vectors, expected %d", len(out.Data), want)
	}
	vectors := make([][]float64, len(out.Data))
	for i, d := range out.Data {
		if len(d.Embedding) != c.dimension {
			return nil, fmt.Errorf("embedding has dimension %d, expected %d", len(d.Embedding), c.dimension)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (c *Client) retryable(err error) error {
	return &domain.ProviderError{Provider: c.Name(), Retryable: true, Err: err}
}

func (c *Client) fatal(err error) error {
	return &domain.ProviderError{Provider: c.Name(), Retryable: false, Err: err}
}

// maxRetryDelay caps every wait between attempts, including server-sent
// Retry-After hints.
const maxRetryDelay = 5 * time.Second

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}
