package repository

import (
	"context"

	"flightsched-service/internal/domain/entity"
)

// WeatherProvider fetches a normalized observation for an airport.
// An unavailable reading is reported as apperr.ErrUnavailable; the
// caller records a retriable failure instead of fabricating a result.
type WeatherProvider interface {
	Fetch(ctx context.Context, airportCode string) (*entity.WeatherReading, error)
}
