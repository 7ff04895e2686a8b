package repository

import (
	"context"

	"flightsched-service/internal/domain/entity"
)

// AircraftRepository defines the interface for aircraft persistence.
// Ground reports false when the aircraft was already grounded.
type AircraftRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Aircraft, error)
	Ground(ctx context.Context, id string) (bool, error)
}
