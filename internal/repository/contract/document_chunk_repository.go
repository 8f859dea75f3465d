package contract

import (
	"context"

	"cs-chatbot-be/internal/model"

	"github.com/google/uuid"
)

// ScoredChunk wraps a DocumentChunk with its cosine similarity score
type ScoredChunk struct {
	Chunk      *model.DocumentChunk
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type DocumentChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*model.DocumentChunk) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	CountByDocumentId(ctx context.Context, documentId uuid.UUID) (int64, error)
	// SearchSimilarWithScore returns the chunks nearest to the query vector
	// by cosine similarity, dropping anything under the threshold.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredChunk, error)
}
