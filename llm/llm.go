package llm

import (
	"context"
	"errors"
)

// ErrRateLimited is wrapped by providers when the model rejects a call for
// quota reasons (HTTP 429 / RESOURCE_EXHAUSTED). It is the only error the
// classifier retries.
var ErrRateLimited = errors.New("model rate limited")

// Client abstracts the generative model used by the classifier.
// Implementations must be safe for concurrent use.
type Client interface {
	// GenerateText sends a prompt plus one JPEG image and returns the
	// model's free-text answer.
	GenerateText(ctx context.Context, prompt string, jpegImage []byte) (string, error)
	// SourceName returns a short provider label for logs and metrics.
	SourceName() string
}
