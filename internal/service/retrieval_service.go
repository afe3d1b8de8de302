package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dos-platform/tutor-api/internal/models"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
	"github.com/dos-platform/tutor-api/pkg/openai"
)

type chunkSearcher interface {
	SearchSimilar(ctx context.Context, embedding []float32, courseID, topicID int64, limit int) ([]models.RetrievedChunk, error)
}

// RetrievalService maps a free-text query plus a course/topic scope to the
// most relevant reference passages. One embedding call per invocation; no
// caching on the hot path.
type RetrievalService struct {
	embedder openai.Client
	chunks   chunkSearcher
	topK     int
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRetrievalService constructs a RetrievalService.
func NewRetrievalService(embedder openai.Client, chunks chunkSearcher, topK int, timeout time.Duration, logger *zap.Logger) *RetrievalService {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalService{embedder: embedder, chunks: chunks, topK: topK, timeout: timeout, logger: logger}
}

// Retrieve returns up to topK chunks ordered by decreasing similarity. An
// empty result means no grounding is available for that scope, never an
// error.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, courseID, topicID int64, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 || k > s.topK {
		k = s.topK
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to embed query")
	}

	chunks, err := s.chunks.SearchSimilar(ctx, embedding, courseID, topicID, k)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search chunks")
	}
	if chunks == nil {
		chunks = []models.RetrievedChunk{}
	}
	return chunks, nil
}
