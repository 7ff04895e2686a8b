package usecase

import (
	"context"
	"sync"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/apperr"
	"flightsched-service/pkg/logger"
	"flightsched-service/pkg/metrics"
	"flightsched-service/templates"
)

// GroundingCascade reacts to a GROUNDING squawk: it grounds the
// aircraft, cancels every future flight on that tail and fans out
// reschedule generation per flight in the background.
type GroundingCascade struct {
	flightRepo   repository.FlightRepository
	aircraftRepo repository.AircraftRepository
	squawkRepo   repository.SquawkRepository
	generator    repository.SuggestionGenerator
	stateMachine *RescheduleStateMachine
	notifier     repository.Notifier
	logger       logger.Logger
	metrics      *metrics.Metrics

	fanoutWorkers    int
	perFlightTimeout time.Duration
	now              func() time.Time

	wg sync.WaitGroup
}

// CascadeResult reports the synchronous part of a squawk filing
type CascadeResult struct {
	Squawk           *entity.Squawk
	Grounded         bool
	ImpactedFlights  int
	FlightsCancelled int64
}

// NewGroundingCascade creates a new cascade handler
func NewGroundingCascade(
	flightRepo repository.FlightRepository,
	aircraftRepo repository.AircraftRepository,
	squawkRepo repository.SquawkRepository,
	generator repository.SuggestionGenerator,
	stateMachine *RescheduleStateMachine,
	notifier repository.Notifier,
	logger logger.Logger,
	metrics *metrics.Metrics,
	fanoutWorkers int,
	perFlightTimeout time.Duration,
) *GroundingCascade {
	if fanoutWorkers <= 0 {
		fanoutWorkers = 3
	}
	if perFlightTimeout <= 0 {
		perFlightTimeout = 30 * time.Second
	}
	return &GroundingCascade{
		flightRepo:       flightRepo,
		aircraftRepo:     aircraftRepo,
		squawkRepo:       squawkRepo,
		generator:        generator,
		stateMachine:     stateMachine,
		notifier:         notifier,
		logger:           logger,
		metrics:          metrics,
		fanoutWorkers:    fanoutWorkers,
		perFlightTimeout: perFlightTimeout,
		now:              time.Now,
	}
}

var validSeverities = map[string]bool{
	entity.SeverityMinor:     true,
	entity.SeverityMajor:     true,
	entity.SeverityGrounding: true,
}

// FileSquawk records a defect report. GROUNDING severity triggers the
// cascade; the call returns once the impacted flights are cancelled
// and the fan-out continues in the background.
func (g *GroundingCascade) FileSquawk(ctx context.Context, squawk *entity.Squawk) (*CascadeResult, error) {
	if squawk.AircraftID == "" {
		return nil, apperr.Validationf("aircraftId is required")
	}
	if squawk.Description == "" {
		return nil, apperr.Validationf("a squawk description is required")
	}
	if !validSeverities[squawk.Severity] {
		return nil, apperr.Validationf("unknown severity %q", squawk.Severity)
	}
	if _, err := g.aircraftRepo.FindByID(ctx, squawk.AircraftID); err != nil {
		return nil, err
	}

	if err := g.squawkRepo.Create(ctx, squawk); err != nil {
		return nil, err
	}
	g.logger.Info("Squawk filed",
		"squawkId", squawk.ID,
		"aircraftId", squawk.AircraftID,
		"severity", squawk.Severity)

	result := &CascadeResult{Squawk: squawk}
	if squawk.Severity != entity.SeverityGrounding {
		return result, nil
	}
	return g.cascade(ctx, squawk, result)
}

// cascade runs steps 1-3 synchronously and launches step 4. The squawk
// counts as filed correctly once the bulk cancellation lands; step 4
// failures are per-flight and non-fatal.
func (g *GroundingCascade) cascade(ctx context.Context, squawk *entity.Squawk, result *CascadeResult) (*CascadeResult, error) {
	grounded, err := g.aircraftRepo.Ground(ctx, squawk.AircraftID)
	if err != nil {
		return nil, err
	}
	result.Grounded = grounded
	if !grounded {
		g.logger.Info("Aircraft already grounded, recomputing cascade",
			"aircraftId", squawk.AircraftID)
	}

	flights, err := g.flightRepo.FindFutureByAircraft(ctx, squawk.AircraftID, g.now(), entity.CancellableStatuses())
	if err != nil {
		return nil, err
	}
	result.ImpactedFlights = len(flights)

	ids := make([]string, len(flights))
	for i, f := range flights {
		ids[i] = f.ID
	}
	if err := g.squawkRepo.SetImpactedFlights(ctx, squawk.ID, ids); err != nil {
		return nil, err
	}
	squawk.ImpactedFlightIDs = ids

	if len(flights) == 0 {
		return result, nil
	}

	cancelled, err := g.flightRepo.BulkUpdateStatus(ctx, ids, entity.CancellableStatuses(), entity.FlightStatusMaintenanceCancelled)
	if err != nil {
		return nil, err
	}
	result.FlightsCancelled = cancelled
	g.metrics.FlightsCancelled.WithLabelValues("maintenance").Add(float64(cancelled))
	g.logger.Info("Grounding cascade cancelled flights",
		"squawkId", squawk.ID,
		"aircraftId", squawk.AircraftID,
		"cancelled", cancelled)

	// A hundred impacted flights must not make squawk filing slow:
	// reschedule generation proceeds in the background.
	g.wg.Add(1)
	go g.fanout(flights)

	return result, nil
}

// fanout generates reschedule options per impacted flight with bounded
// concurrency. Each flight is independent: one slow or failing
// generation never stalls the rest.
func (g *GroundingCascade) fanout(flights []*entity.Flight) {
	defer g.wg.Done()

	sem := make(chan struct{}, g.fanoutWorkers)
	var wg sync.WaitGroup
	for _, flight := range flights {
		wg.Add(1)
		sem <- struct{}{}
		go func(f *entity.Flight) {
			defer wg.Done()
			defer func() { <-sem }()
			g.rescheduleOne(f)
		}(flight)
	}
	wg.Wait()
}

func (g *GroundingCascade) rescheduleOne(flight *entity.Flight) {
	g.metrics.CascadeFlights.Inc()
	flight.Status = entity.FlightStatusMaintenanceCancelled

	ctx, cancel := context.WithTimeout(context.Background(), g.perFlightTimeout)
	defer cancel()

	suggestions, reasoning, err := g.generator.Generate(ctx, flight)
	if err == nil && len(suggestions) > 0 {
		if _, createErr := g.stateMachine.Create(ctx, flight, suggestions, reasoning); createErr == nil {
			return
		} else {
			err = createErr
		}
	}

	// The flight stays MAINTENANCE_CANCELLED without a request, to be
	// retried or handled manually.
	g.metrics.GenerationFailures.Inc()
	g.logger.Warn("No reschedule request after grounding",
		"flightId", flight.ID, "error", err)

	if notifyErr := g.notifier.Notify(ctx, flight.StudentID, repository.NotifyFlightCancelled, map[string]interface{}{
		"flightId": flight.ID,
		"message":  templates.FlightCancelledNotice(flight, "aircraft maintenance"),
	}); notifyErr != nil {
		g.metrics.NotifyFailures.Inc()
		g.logger.Warn("Cancellation notification failed",
			"flightId", flight.ID, "error", notifyErr)
	}
}

// Wait blocks until every launched fan-out finishes; used on shutdown
// and by tests
func (g *GroundingCascade) Wait() {
	g.wg.Wait()
}

// RescheduleFlight generates options for a single already-cancelled
// flight, used by the job pipeline to retry flights the fan-out could
// not cover
func (g *GroundingCascade) RescheduleFlight(ctx context.Context, flightID string) error {
	flight, err := g.flightRepo.FindByID(ctx, flightID)
	if err != nil {
		return err
	}
	switch flight.Status {
	case entity.FlightStatusWeatherCancelled, entity.FlightStatusMaintenanceCancelled:
	default:
		return apperr.Conflictf("flight %s is %s, not cancelled", flightID, flight.Status)
	}
	if open, err := g.stateMachine.requestRepo.FindOpenByFlight(ctx, flightID); err == nil && open != nil {
		return apperr.Conflictf("flight %s already has open request %s", flightID, open.ID)
	}

	genCtx, cancel := context.WithTimeout(ctx, g.perFlightTimeout)
	defer cancel()

	suggestions, reasoning, err := g.generator.Generate(genCtx, flight)
	if err != nil {
		g.metrics.GenerationFailures.Inc()
		return err
	}
	_, err = g.stateMachine.Create(ctx, flight, suggestions, reasoning)
	return err
}
