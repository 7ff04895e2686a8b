package repository

import (
	"context"
	"time"

	"flightsched-service/internal/domain/entity"
)

// FlightRepository defines the interface for flight persistence.
// Every status write is conditional on the expected prior statuses;
// zero matched documents surfaces as a conflict.
type FlightRepository interface {
	Create(ctx context.Context, flight *entity.Flight) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*entity.Flight, error)
	FindFutureByAircraft(ctx context.Context, aircraftID string, after time.Time, statuses []string) ([]*entity.Flight, error)
	FindScheduledBetween(ctx context.Context, from, to time.Time, statuses []string) ([]*entity.Flight, error)
	UpdateStatus(ctx context.Context, id string, fromStatuses []string, to string) error
	BulkUpdateStatus(ctx context.Context, ids []string, fromStatuses []string, to string) (int64, error)
	SetOverride(ctx context.Context, id, approverID, reason string) error
}
