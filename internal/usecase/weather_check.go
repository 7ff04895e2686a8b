package usecase

import (
	"context"
	"math"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/logger"
	"flightsched-service/pkg/metrics"
	"flightsched-service/templates"
)

// WeatherCheckRunner runs one flight safety check end to end: resolve
// minimums, fetch the reading, evaluate, record the evidence and, on
// UNSAFE, cancel the flight and start rescheduling.
type WeatherCheckRunner struct {
	flightRepo   repository.FlightRepository
	checkRepo    repository.WeatherCheckRepository
	minimumsRepo repository.MinimumsRepository
	airportRepo  repository.AirportRepository
	weather      repository.WeatherProvider
	generator    repository.SuggestionGenerator
	stateMachine *RescheduleStateMachine
	notifier     repository.Notifier
	evaluator    *SafetyEvaluator
	logger       logger.Logger
	metrics      *metrics.Metrics

	suggestTimeout time.Duration
}

// NewWeatherCheckRunner creates a new runner
func NewWeatherCheckRunner(
	flightRepo repository.FlightRepository,
	checkRepo repository.WeatherCheckRepository,
	minimumsRepo repository.MinimumsRepository,
	airportRepo repository.AirportRepository,
	weather repository.WeatherProvider,
	generator repository.SuggestionGenerator,
	stateMachine *RescheduleStateMachine,
	notifier repository.Notifier,
	evaluator *SafetyEvaluator,
	logger logger.Logger,
	metrics *metrics.Metrics,
	suggestTimeout time.Duration,
) *WeatherCheckRunner {
	if suggestTimeout <= 0 {
		suggestTimeout = 30 * time.Second
	}
	return &WeatherCheckRunner{
		flightRepo:     flightRepo,
		checkRepo:      checkRepo,
		minimumsRepo:   minimumsRepo,
		airportRepo:    airportRepo,
		weather:        weather,
		generator:      generator,
		stateMachine:   stateMachine,
		notifier:       notifier,
		evaluator:      evaluator,
		logger:         logger,
		metrics:        metrics,
		suggestTimeout: suggestTimeout,
	}
}

// deriveCrosswind fills in the crosswind component from wind speed and
// direction against the runway heading when the provider reported none
func deriveCrosswind(reading *entity.WeatherReading, airport *entity.Airport) {
	if reading.CrosswindKt != nil || reading.WindSpeedKt == nil ||
		reading.WindDirection == nil || airport.RunwayHeading <= 0 {
		return
	}
	angle := (*reading.WindDirection - airport.RunwayHeading) * math.Pi / 180
	crosswind := math.Abs(*reading.WindSpeedKt * math.Sin(angle))
	reading.CrosswindKt = &crosswind
}

// checkableStatuses are the flight statuses a safety check applies to
var checkableStatuses = map[string]bool{
	entity.FlightStatusPending:             true,
	entity.FlightStatusConfirmed:           true,
	entity.FlightStatusRescheduleConfirmed: true,
}

// Run executes the safety check for one flight. An unavailable weather
// reading returns a retriable error without fabricating a result.
func (r *WeatherCheckRunner) Run(ctx context.Context, flightID string) error {
	started := time.Now()
	defer func() {
		r.metrics.EvaluationTime.Observe(time.Since(started).Seconds())
	}()

	flight, err := r.flightRepo.FindByID(ctx, flightID)
	if err != nil {
		return err
	}
	if !checkableStatuses[flight.Status] {
		r.logger.Debug("Skipping safety check",
			"flightId", flightID,
			"status", flight.Status)
		return nil
	}

	minimums, err := r.minimumsRepo.Resolve(ctx, flight.TrainingLevel, flight.AircraftType, flight.FlightType)
	if err != nil {
		return err
	}

	airport, err := r.airportRepo.GetByCode(ctx, flight.DepartureAirport)
	if err != nil {
		return err
	}

	reading, err := r.weather.Fetch(ctx, airport.Code)
	if err != nil {
		// No reading, no evaluation. The job layer retries this.
		return err
	}
	deriveCrosswind(reading, airport)

	eval := r.evaluator.Evaluate(reading, minimums)

	check := &entity.WeatherCheck{
		FlightID:   flightID,
		Reading:    *reading,
		Minimums:   *minimums,
		Result:     eval.Result,
		Confidence: eval.Confidence,
		Reasons:    eval.Reasons,
		CheckedAt:  time.Now(),
	}
	if err := r.checkRepo.Insert(ctx, check); err != nil {
		return err
	}

	r.logger.Info("Safety check recorded",
		"flightId", flightID,
		"result", eval.Result,
		"confidence", eval.Confidence,
		"reasons", len(eval.Reasons))

	if eval.Result != entity.CheckResultUnsafe {
		return nil
	}

	err = r.flightRepo.UpdateStatus(ctx, flightID,
		[]string{entity.FlightStatusPending, entity.FlightStatusConfirmed, entity.FlightStatusRescheduleConfirmed},
		entity.FlightStatusWeatherCancelled)
	if err != nil {
		// Someone else moved the flight first; the evidence is
		// recorded either way.
		r.logger.Warn("Flight not cancelled after unsafe check",
			"flightId", flightID, "error", err)
		return nil
	}
	flight.Status = entity.FlightStatusWeatherCancelled
	r.metrics.FlightsCancelled.WithLabelValues("weather").Inc()

	r.startReschedule(ctx, flight, eval)
	return nil
}

// startReschedule asks the generator for alternates and opens the
// request. Generator failure leaves the flight cancelled without a
// request; the student still hears about the cancellation.
func (r *WeatherCheckRunner) startReschedule(ctx context.Context, flight *entity.Flight, eval Evaluation) {
	genCtx, cancel := context.WithTimeout(ctx, r.suggestTimeout)
	defer cancel()

	suggestions, reasoning, err := r.generator.Generate(genCtx, flight)
	if err == nil && len(suggestions) > 0 {
		if _, createErr := r.stateMachine.Create(ctx, flight, suggestions, reasoning); createErr == nil {
			return
		} else {
			err = createErr
		}
	}

	r.metrics.GenerationFailures.Inc()
	r.logger.Warn("No reschedule request after weather cancellation",
		"flightId", flight.ID, "error", err)

	if notifyErr := r.notifier.Notify(ctx, flight.StudentID, repository.NotifyFlightCancelled, map[string]interface{}{
		"flightId": flight.ID,
		"message":  templates.WeatherCancelledNotice(flight, eval.Reasons),
	}); notifyErr != nil {
		r.metrics.NotifyFailures.Inc()
		r.logger.Warn("Cancellation notification failed",
			"flightId", flight.ID, "error", notifyErr)
	}
}
