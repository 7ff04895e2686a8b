package repository

import (
	"context"

	"flightsched-service/internal/domain/entity"
)

// MinimumsRepository resolves the weather minimums profile for a flight
type MinimumsRepository interface {
	Resolve(ctx context.Context, trainingLevel, aircraftType, flightType string) (*entity.Minimums, error)
}
