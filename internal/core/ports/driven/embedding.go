package driven

import "context"

// EmbeddingService turns page text into the vectors stored in the
// SimilarityIndex. Every vector it returns has Dimensions() components,
// and the index refuses a service whose dimension differs from the one it
// was created with.
//
// Adapters own their timeouts and retries. The index services never retry
// a failed embedding; the mutation fails and the index is left unchanged.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per text, in order. Any failure fails
	// the whole batch.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping checks that the backend answers, without embedding anything
	// large.
	Ping(ctx context.Context) error

	Close() error
}
