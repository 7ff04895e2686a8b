package repository

import (
	"context"
	"time"

	"flightsched-service/internal/domain/entity"
)

// RescheduleRequestRepository defines the interface for reschedule
// request persistence. Create must enforce at most one open request per
// flight; SelectOption, Accept and Reject are status-keyed conditional
// updates so only one racer can win a transition.
type RescheduleRequestRepository interface {
	Create(ctx context.Context, req *entity.RescheduleRequest) error
	FindByID(ctx context.Context, id string) (*entity.RescheduleRequest, error)
	FindOpenByFlight(ctx context.Context, flightID string) (*entity.RescheduleRequest, error)
	SelectOption(ctx context.Context, id string, option int, selectedInstructorID string, at time.Time) error
	Accept(ctx context.Context, id string, newFlightID string, at time.Time) error
	Reject(ctx context.Context, id string, reason string, at time.Time) error
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
	ListForInstructor(ctx context.Context, instructorID string) ([]*entity.RescheduleRequest, error)
}
