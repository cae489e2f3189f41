// Package driving provides interfaces through which the embedding
// application drives the engine (primary/inbound ports).
package driving

import (
	"context"

	"github.com/glotdeck/glotdeck/internal/core/domain"
)

// BatchTranslator turns a list of text fragments into translated
// fragments. The caller always receives a complete, order-preserving
// fragment list; a non-zero fallback count, not an error, is the
// signal that something degraded. An error is returned only for
// request-level problems: invalid requests and missing credentials.
type BatchTranslator interface {
	Translate(ctx context.Context, req domain.TranslationRequest) (*domain.JobResult, error)
}
