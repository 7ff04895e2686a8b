package repository

import (
	"context"

	"flightsched-service/internal/domain/entity"
)

// WeatherCheckRepository defines the interface for weather check
// evidence. Checks are append-only; there is no update operation.
type WeatherCheckRepository interface {
	Insert(ctx context.Context, check *entity.WeatherCheck) error
	LatestByFlight(ctx context.Context, flightID string) (*entity.WeatherCheck, error)
}
