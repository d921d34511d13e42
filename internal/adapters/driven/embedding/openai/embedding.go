// Package openai embeds page text with the OpenAI /embeddings endpoint or
// any server that speaks it.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docagent/internal/adapters/driven/throttle"
	"github.com/custodia-labs/docagent/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "text-embedding-3-small"
	DefaultTimeout     = 60 * time.Second
	DefaultBatchSize   = 256
	DefaultConcurrency = 2

	fallbackDimensions = 1536
)

// Native output sizes. text-embedding-3-* models also accept a smaller
// size through the dimensions request field.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures the adapter. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3-* vectors. Zero keeps the
	// model's native size.
	Dimensions int

	// BatchSize caps the inputs per request; Concurrency caps the requests
	// in flight for one EmbedBatch call.
	BatchSize   int
	Concurrency int

	// RequestsPerSecond paces requests. Zero disables pacing.
	RequestsPerSecond float64
	MaxRetries        int
}

// EmbeddingService implements driven.EmbeddingService.
type EmbeddingService struct {
	client      *throttle.Client
	baseURL     string
	apiKey      string
	model       string
	dimensions  int
	batchSize   int
	concurrency int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewEmbeddingService returns an adapter for cfg.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}

	s := &EmbeddingService{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
	}
	if s.baseURL == "" {
		s.baseURL = DefaultBaseURL
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.dimensions == 0 {
		s.dimensions = fallbackDimensions
		if n, ok := modelDimensions[s.model]; ok {
			s.dimensions = n
		}
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultConcurrency
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	s.client = &throttle.Client{
		HTTP:       &http.Client{Timeout: timeout},
		Limiter:    throttle.NewLimiter(cfg.RequestsPerSecond, s.concurrency),
		Provider:   "openai",
		MaxRetries: cfg.MaxRetries,
	}
	return s, nil
}

// Embed embeds one text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch sends texts in slices of BatchSize, up to Concurrency at a
// time, and returns the vectors in input order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for lo := 0; lo < len(texts); lo += s.batchSize {
		hi := min(lo+s.batchSize, len(texts))
		g.Go(func() error {
			if err := s.embedInto(ctx, texts[lo:hi], vectors[lo:hi]); err != nil {
				return fmt.Errorf("embed texts %d-%d: %w", lo, hi-1, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// embedInto makes one request for texts and fills dst, which has the same
// length, by the index field of each result.
func (s *EmbeddingService) embedInto(ctx context.Context, texts []string, dst [][]float32) error {
	body := embeddingRequest{Model: s.model, Input: texts}
	if strings.HasPrefix(s.model, "text-embedding-3-") {
		body.Dimensions = s.dimensions
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	resp, err := s.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := s.newRequest(ctx, http.MethodPost, "/embeddings", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return fmt.Errorf("openai error: %s", out.Error.Message)
	}

	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(dst) {
			return fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		dst[d.Index] = toFloat32(d.Embedding)
	}
	for i, v := range dst {
		if v == nil {
			return fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}
	return nil
}

func (s *EmbeddingService) newRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, s.baseURL+path, http.NoBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists models, which checks the key without embedding anything.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	resp, err := s.client.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return s.newRequest(ctx, http.MethodGet, "/models", nil)
	})
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	return resp.Body.Close()
}

// Close is a no-op.
func (s *EmbeddingService) Close() error { return nil }
