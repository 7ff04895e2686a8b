package entity

import "time"

// JobKind identifies what a pipeline item does
type JobKind string

const (
	JobKindWeatherCheck         JobKind = "WEATHER_CHECK"
	JobKindRescheduleGeneration JobKind = "RESCHEDULE_GENERATION"
)

// Job states
const (
	JobStateWaiting   = "WAITING"
	JobStateActive    = "ACTIVE"
	JobStateCompleted = "COMPLETED"
	JobStateFailed    = "FAILED"
)

// Job is one unit of background work keyed to a flight
type Job struct {
	ID             string
	Kind           JobKind
	FlightID       string
	Payload        map[string]interface{}
	Priority       int
	IdempotencyKey string
	State          string
	Attempts       int
	LastError      string
	SubmittedAt    time.Time
	StartedAt      *time.Time
	FinishedAt     *time.Time
}
