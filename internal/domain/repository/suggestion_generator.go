package repository

import (
	"context"

	"flightsched-service/internal/domain/entity"
)

// SuggestionGenerator returns ranked alternate slots for a displaced
// flight plus a reasoning payload. Treated as a black box; callers
// bound every call with a context deadline.
type SuggestionGenerator interface {
	Generate(ctx context.Context, flight *entity.Flight) ([]entity.Suggestion, string, error)
}
