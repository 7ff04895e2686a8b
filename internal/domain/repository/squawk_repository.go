package repository

import (
	"context"

	"flightsched-service/internal/domain/entity"
)

// SquawkRepository defines the interface for squawk persistence
type SquawkRepository interface {
	Create(ctx context.Context, squawk *entity.Squawk) error
	FindByID(ctx context.Context, id string) (*entity.Squawk, error)
	SetImpactedFlights(ctx context.Context, id string, flightIDs []string) error
}
