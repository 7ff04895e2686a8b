package usecase

import (
	"context"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/apperr"
	"flightsched-service/pkg/logger"
	"flightsched-service/pkg/metrics"
	"flightsched-service/templates"
)

// maxChainDepth bounds the rescheduledFrom walk; a training flight is
// never rebooked anywhere near this many times.
const maxChainDepth = 50

// RescheduleStateMachine owns RescheduleRequest transitions and the
// flight status changes tied to them
type RescheduleStateMachine struct {
	flightRepo  repository.FlightRepository
	requestRepo repository.RescheduleRequestRepository
	notifier    repository.Notifier
	logger      logger.Logger
	metrics     *metrics.Metrics
	requestTTL  time.Duration
	now         func() time.Time
}

// NewRescheduleStateMachine creates a new state machine
func NewRescheduleStateMachine(
	flightRepo repository.FlightRepository,
	requestRepo repository.RescheduleRequestRepository,
	notifier repository.Notifier,
	logger logger.Logger,
	metrics *metrics.Metrics,
	requestTTL time.Duration,
) *RescheduleStateMachine {
	if requestTTL <= 0 {
		requestTTL = 48 * time.Hour
	}
	return &RescheduleStateMachine{
		flightRepo:  flightRepo,
		requestRepo: requestRepo,
		notifier:    notifier,
		logger:      logger,
		metrics:     metrics,
		requestTTL:  requestTTL,
		now:         time.Now,
	}
}

// Create opens a PENDING_STUDENT request for a displaced flight.
// Fails with a conflict if an open request already exists.
func (sm *RescheduleStateMachine) Create(ctx context.Context, flight *entity.Flight, suggestions []entity.Suggestion, reasoning string) (*entity.RescheduleRequest, error) {
	if len(suggestions) == 0 {
		return nil, apperr.Validationf("no suggestions for flight %s", flight.ID)
	}

	now := sm.now()
	req := &entity.RescheduleRequest{
		FlightID:             flight.ID,
		StudentID:            flight.StudentID,
		OriginalInstructorID: flight.InstructorID,
		Suggestions:          suggestions,
		Reasoning:            reasoning,
		Status:               entity.RequestStatusPendingStudent,
		ExpiresAt:            now.Add(sm.requestTTL),
	}
	if err := sm.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	sm.metrics.RequestsCreated.Inc()
	sm.logger.Info("Reschedule request created",
		"requestId", req.ID,
		"flightId", flight.ID,
		"suggestions", len(suggestions),
		"expiresAt", req.ExpiresAt)

	sm.notify(ctx, flight.StudentID, repository.NotifyRescheduleOptions, map[string]interface{}{
		"requestId": req.ID,
		"flightId":  flight.ID,
		"message":   templates.RescheduleOptionsNotice(flight, suggestions, req.ExpiresAt),
	})

	return req, nil
}

// StudentSelect binds the student's chosen suggestion index and hands
// the request to the instructor
func (sm *RescheduleStateMachine) StudentSelect(ctx context.Context, requestID, callerID string, index int) (*entity.RescheduleRequest, error) {
	req, err := sm.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if callerID != req.StudentID {
		return nil, apperr.Forbiddenf("caller %s is not the student on request %s", callerID, requestID)
	}
	if req.Status != entity.RequestStatusPendingStudent {
		return nil, apperr.Conflictf("request %s is %s, not awaiting the student", requestID, req.Status)
	}
	now := sm.now()
	if req.ExpiredAt(now) {
		return nil, apperr.Expiredf("request %s expired at %s", requestID, req.ExpiresAt.Format(time.RFC3339))
	}
	if index < 0 || index >= len(req.Suggestions) {
		return nil, apperr.Validationf("suggestion index %d out of range for %d suggestions", index, len(req.Suggestions))
	}

	selected := req.Suggestions[index]
	if err := sm.requestRepo.SelectOption(ctx, requestID, index, selected.InstructorID, now); err != nil {
		return nil, err
	}

	// The flight was cancelled when the request was created; bind its
	// status to the now-advancing request.
	err = sm.flightRepo.UpdateStatus(ctx, req.FlightID,
		[]string{entity.FlightStatusWeatherCancelled, entity.FlightStatusMaintenanceCancelled},
		entity.FlightStatusReschedulePending)
	if err != nil {
		sm.logger.Warn("Flight did not move to reschedule-pending",
			"flightId", req.FlightID, "error", err)
	}

	sm.logger.Info("Student selected reschedule option",
		"requestId", requestID,
		"option", index,
		"instructorId", selected.InstructorID)

	sm.notify(ctx, selected.InstructorID, repository.NotifyRescheduleSelected, map[string]interface{}{
		"requestId": requestID,
		"flightId":  req.FlightID,
		"option":    index,
		"slotStart": selected.Slot.Start,
	})

	return sm.requestRepo.FindByID(ctx, requestID)
}

// InstructorConfirm finalizes the request: it creates the successor
// flight, marks the original rescheduled and moves the request to
// ACCEPTED. The accept transition is a single conditional update, so
// when two confirmers race exactly one wins and the loser observes a
// conflict.
func (sm *RescheduleStateMachine) InstructorConfirm(ctx context.Context, requestID, callerID string) (*entity.RescheduleRequest, error) {
	req, err := sm.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != entity.RequestStatusPendingInstructor {
		return nil, apperr.Conflictf("request %s is %s, not awaiting the instructor", requestID, req.Status)
	}
	now := sm.now()
	if req.ExpiredAt(now) {
		return nil, apperr.Expiredf("request %s expired at %s", requestID, req.ExpiresAt.Format(time.RFC3339))
	}
	if req.SelectedOption == nil || *req.SelectedOption < 0 || *req.SelectedOption >= len(req.Suggestions) {
		return nil, apperr.Validationf("request %s has no valid selected option", requestID)
	}
	selected := req.Suggestions[*req.SelectedOption]
	if !selected.Complete() {
		return nil, apperr.NotFoundf("selected suggestion on request %s is missing instructor, aircraft or slot", requestID)
	}
	// The original instructor may confirm, and so may the instructor
	// the new slot was handed to.
	if callerID != req.OriginalInstructorID && callerID != selected.InstructorID {
		return nil, apperr.Forbiddenf("caller %s may not confirm request %s", callerID, requestID)
	}

	original, err := sm.flightRepo.FindByID(ctx, req.FlightID)
	if err != nil {
		return nil, err
	}
	if err := sm.validateChain(ctx, original); err != nil {
		return nil, err
	}

	successor := &entity.Flight{
		SchoolID:          original.SchoolID,
		StudentID:         original.StudentID,
		InstructorID:      selected.InstructorID,
		AircraftID:        selected.AircraftID,
		AircraftType:      original.AircraftType,
		LessonCode:        original.LessonCode,
		FlightType:        original.FlightType,
		TrainingLevel:     original.TrainingLevel,
		DepartureAirport:  original.DepartureAirport,
		ScheduledStart:    selected.Slot.Start,
		ScheduledEnd:      selected.Slot.End,
		Status:            entity.FlightStatusRescheduleConfirmed,
		RescheduledFromID: original.ID,
	}
	if err := sm.flightRepo.Create(ctx, successor); err != nil {
		return nil, err
	}

	if err := sm.requestRepo.Accept(ctx, requestID, successor.ID, now); err != nil {
		// Race lost: another confirmer accepted first. Remove the
		// speculative successor so no second flight survives.
		if delErr := sm.flightRepo.Delete(ctx, successor.ID); delErr != nil {
			sm.logger.Error("Failed to roll back successor flight",
				"flightId", successor.ID, "error", delErr)
		}
		return nil, err
	}

	err = sm.flightRepo.UpdateStatus(ctx, original.ID,
		[]string{entity.FlightStatusReschedulePending, entity.FlightStatusWeatherCancelled, entity.FlightStatusMaintenanceCancelled},
		entity.FlightStatusRescheduled)
	if err != nil {
		sm.logger.Warn("Original flight did not move to rescheduled",
			"flightId", original.ID, "error", err)
	}

	sm.metrics.RequestsAccepted.Inc()
	sm.logger.Info("Reschedule request accepted",
		"requestId", requestID,
		"newFlightId", successor.ID,
		"confirmedBy", callerID)

	sm.notify(ctx, req.StudentID, repository.NotifyRescheduleAccepted, map[string]interface{}{
		"requestId":   requestID,
		"newFlightId": successor.ID,
		"message":     templates.RescheduleAcceptedNotice(successor),
	})

	return sm.requestRepo.FindByID(ctx, requestID)
}

// Reject terminates an open request with a reason. Either party may
// reject; the flight keeps its cancelled status.
func (sm *RescheduleStateMachine) Reject(ctx context.Context, requestID, callerID, reason string) error {
	if reason == "" {
		return apperr.Validationf("a reject reason is required")
	}
	req, err := sm.requestRepo.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if !sm.mayAct(req, callerID) {
		return apperr.Forbiddenf("caller %s is not a party to request %s", callerID, requestID)
	}
	if err := sm.requestRepo.Reject(ctx, requestID, reason, sm.now()); err != nil {
		return err
	}

	sm.metrics.RequestsRejected.Inc()
	sm.logger.Info("Reschedule request rejected",
		"requestId", requestID,
		"by", callerID,
		"reason", reason)

	sm.notify(ctx, req.StudentID, repository.NotifyRescheduleRejected, map[string]interface{}{
		"requestId": requestID,
		"reason":    reason,
	})
	return nil
}

// ListForInstructor lists requests visible to an instructor under the
// handed-off visibility rule
func (sm *RescheduleStateMachine) ListForInstructor(ctx context.Context, instructorID string) ([]*entity.RescheduleRequest, error) {
	return sm.requestRepo.ListForInstructor(ctx, instructorID)
}

// ExpireOverdue flips overdue open requests to EXPIRED and returns the
// number changed
func (sm *RescheduleStateMachine) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := sm.requestRepo.ExpireOverdue(ctx, sm.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		sm.metrics.RequestsExpired.Add(float64(n))
		sm.logger.Info("Expired overdue reschedule requests", "count", n)
	}
	return n, nil
}

func (sm *RescheduleStateMachine) mayAct(req *entity.RescheduleRequest, callerID string) bool {
	if callerID == req.StudentID || callerID == req.OriginalInstructorID {
		return true
	}
	return req.SelectedInstructorID != "" && callerID == req.SelectedInstructorID
}

// validateChain walks the rescheduledFrom links from the flight about
// to gain a successor, rejecting repeats so the chain stays acyclic
func (sm *RescheduleStateMachine) validateChain(ctx context.Context, flight *entity.Flight) error {
	seen := map[string]bool{flight.ID: true}
	current := flight
	for depth := 0; current.RescheduledFromID != ""; depth++ {
		if depth >= maxChainDepth {
			return apperr.Validationf("reschedule chain for flight %s exceeds depth %d", flight.ID, maxChainDepth)
		}
		if seen[current.RescheduledFromID] {
			return apperr.Validationf("reschedule chain for flight %s contains a cycle at %s", flight.ID, current.RescheduledFromID)
		}
		seen[current.RescheduledFromID] = true
		prev, err := sm.flightRepo.FindByID(ctx, current.RescheduledFromID)
		if err != nil {
			return err
		}
		current = prev
	}
	return nil
}

func (sm *RescheduleStateMachine) notify(ctx context.Context, recipientID, notifType string, payload map[string]interface{}) {
	if err := sm.notifier.Notify(ctx, recipientID, notifType, payload); err != nil {
		sm.metrics.NotifyFailures.Inc()
		sm.logger.Warn("Notification delivery failed",
			"recipientId", recipientID,
			"type", notifType,
			"error", err)
	}
}
