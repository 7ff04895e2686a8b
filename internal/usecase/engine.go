package usecase

import (
	"context"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/internal/pipeline"
	"flightsched-service/pkg/apperr"
	"flightsched-service/pkg/logger"
)

// Engine is the outward surface of the rescheduling core, consumed by
// the API layer. It owns no HTTP concerns.
type Engine struct {
	pipe         *pipeline.Pipeline
	flightRepo   repository.FlightRepository
	stateMachine *RescheduleStateMachine
	cascade      *GroundingCascade
	logger       logger.Logger
	now          func() time.Time
}

// NewEngine creates the engine façade
func NewEngine(
	pipe *pipeline.Pipeline,
	flightRepo repository.FlightRepository,
	stateMachine *RescheduleStateMachine,
	cascade *GroundingCascade,
	logger logger.Logger,
) *Engine {
	return &Engine{
		pipe:         pipe,
		flightRepo:   flightRepo,
		stateMachine: stateMachine,
		cascade:      cascade,
		logger:       logger,
		now:          time.Now,
	}
}

// Handlers builds the pipeline kind-dispatch table
func Handlers(runner *WeatherCheckRunner, cascade *GroundingCascade) map[entity.JobKind]pipeline.Handler {
	return map[entity.JobKind]pipeline.Handler{
		entity.JobKindWeatherCheck: func(ctx context.Context, job *entity.Job) error {
			return runner.Run(ctx, job.FlightID)
		},
		entity.JobKindRescheduleGeneration: func(ctx context.Context, job *entity.Job) error {
			return cascade.RescheduleFlight(ctx, job.FlightID)
		},
	}
}

// CheckFlightNow runs a synchronous safety check for one flight,
// bounded by the pipeline's wait ceiling
func (e *Engine) CheckFlightNow(ctx context.Context, flightID string) (string, error) {
	if _, err := e.flightRepo.FindByID(ctx, flightID); err != nil {
		return "", err
	}
	return e.pipe.RunOne(ctx, pipeline.SubmitRequest{
		Kind:           entity.JobKindWeatherCheck,
		FlightID:       flightID,
		Priority:       pipeline.PriorityForStart(e.now(), e.now()),
		IdempotencyKey: pipeline.Key(flightID, entity.JobKindWeatherCheck, "sync"),
	})
}

// SubmitWeatherChecks enqueues safety checks for every checkable
// flight starting inside [from, to), prioritized by urgency. The
// result is counts, never a single pass/fail.
func (e *Engine) SubmitWeatherChecks(ctx context.Context, from, to time.Time) (pipeline.BatchResult, error) {
	if !to.After(from) {
		return pipeline.BatchResult{}, apperr.Validationf("invalid window: %s is not after %s", to, from)
	}
	flights, err := e.flightRepo.FindScheduledBetween(ctx, from, to,
		[]string{entity.FlightStatusPending, entity.FlightStatusConfirmed, entity.FlightStatusRescheduleConfirmed})
	if err != nil {
		return pipeline.BatchResult{}, err
	}

	now := e.now()
	reqs := make([]pipeline.SubmitRequest, 0, len(flights))
	for _, f := range flights {
		reqs = append(reqs, pipeline.SubmitRequest{
			Kind:           entity.JobKindWeatherCheck,
			FlightID:       f.ID,
			Priority:       pipeline.PriorityForStart(f.ScheduledStart, now),
			IdempotencyKey: pipeline.Key(f.ID, entity.JobKindWeatherCheck, "batch"),
		})
	}
	result := e.pipe.SubmitBatch(reqs)
	e.logger.Info("Weather check batch submitted",
		"flights", len(flights),
		"submitted", result.Submitted,
		"deduped", result.Deduped)
	return result, nil
}

// SubmitRescheduleGeneration enqueues reschedule generation for a
// cancelled flight, for retrying flights the cascade could not cover
func (e *Engine) SubmitRescheduleGeneration(ctx context.Context, flightID string) (entity.Job, error) {
	flight, err := e.flightRepo.FindByID(ctx, flightID)
	if err != nil {
		return entity.Job{}, err
	}
	job, _ := e.pipe.Submit(pipeline.SubmitRequest{
		Kind:           entity.JobKindRescheduleGeneration,
		FlightID:       flightID,
		Priority:       pipeline.PriorityForStart(flight.ScheduledStart, e.now()),
		IdempotencyKey: pipeline.Key(flightID, entity.JobKindRescheduleGeneration, "manual"),
	})
	return job, nil
}

// BatchStatus reports, per flight, the best observed pipeline state
func (e *Engine) BatchStatus(flightIDs []string) map[string]string {
	return e.pipe.StatusByFlights(flightIDs)
}

// StudentSelect is the student entry point of the state machine
func (e *Engine) StudentSelect(ctx context.Context, requestID, callerID string, index int) (*entity.RescheduleRequest, error) {
	return e.stateMachine.StudentSelect(ctx, requestID, callerID, index)
}

// InstructorConfirm is the instructor entry point of the state machine
func (e *Engine) InstructorConfirm(ctx context.Context, requestID, callerID string) (*entity.RescheduleRequest, error) {
	return e.stateMachine.InstructorConfirm(ctx, requestID, callerID)
}

// RejectRequest is the reject entry point of the state machine
func (e *Engine) RejectRequest(ctx context.Context, requestID, callerID, reason string) error {
	return e.stateMachine.Reject(ctx, requestID, callerID, reason)
}

// ListRequestsForInstructor applies the handed-off visibility rule
func (e *Engine) ListRequestsForInstructor(ctx context.Context, instructorID string) ([]*entity.RescheduleRequest, error) {
	return e.stateMachine.ListForInstructor(ctx, instructorID)
}

// FileSquawk is the severity-gated cascade trigger
func (e *Engine) FileSquawk(ctx context.Context, squawk *entity.Squawk) (*CascadeResult, error) {
	return e.cascade.FileSquawk(ctx, squawk)
}

// OverrideWeatherCancellation forces a weather-cancelled flight back
// to confirmed. The override is recorded on the flight for audit; no
// state-machine interaction happens.
func (e *Engine) OverrideWeatherCancellation(ctx context.Context, flightID, approverID, reason string) error {
	if reason == "" {
		return apperr.Validationf("an override reason is required")
	}
	if approverID == "" {
		return apperr.Validationf("an override approver is required")
	}
	if err := e.flightRepo.SetOverride(ctx, flightID, approverID, reason); err != nil {
		return err
	}
	e.logger.Info("Weather cancellation overridden",
		"flightId", flightID,
		"approvedBy", approverID,
		"reason", reason)
	return nil
}
