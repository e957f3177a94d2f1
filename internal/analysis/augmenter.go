// Package analysis enriches a classified discrepancy set with pattern
// summaries and recommendations. Two implementations share one contract: an
// OpenAI-backed augmenter and a deterministic statistical fallback. AI
// failure never fails a reconciliation run; it only narrows the report's
// AI-derived content.
package analysis

import (
	"context"
	"log/slog"

	"gl-reconciler/internal/domain"
)

// Augmenter produces an Analysis for a discrepancy set.
type Augmenter interface {
	Analyze(ctx context.Context, discrepancies []domain.Discrepancy) (*domain.Analysis, error)
}

// Select picks the AI-backed augmenter when an API key is available and the
// statistical augmenter otherwise.
func Select(apiKey, model string, batchSize int, logger *slog.Logger) Augmenter {
	if apiKey == "" {
		return NewStatisticalAugmenter()
	}
	return NewAIAugmenter(NewClient(apiKey), model, batchSize, logger)
}
