package ai

import (
	"context"

	"github.com/tickerdeck/tickerdeck/internal/domain"
)

// DisabledService answers every query with a configuration error. It
// backs the /api/ai/query route when no Gemini API key is set, so the
// rest of the dashboard still runs.
type DisabledService struct{}

var _ domain.QueryService = DisabledService{}

func (DisabledService) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	return nil, &domain.Error{
		Code:    domain.EINVALID,
		Op:      "ai.query",
		Message: "The AI assistant is not configured on this server.",
	}
}
