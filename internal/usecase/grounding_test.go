package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/apperr"
	"flightsched-service/pkg/logger"
)

type cascadeFixture struct {
	flights   *fakeFlightRepo
	aircraft  *fakeAircraftRepo
	squawks   *fakeSquawkRepo
	requests  *fakeRequestRepo
	generator *fakeGenerator
	notifier  *fakeNotifier
	cascade   *GroundingCascade
}

func newCascadeFixture(t *testing.T) *cascadeFixture {
	t.Helper()
	f := &cascadeFixture{
		flights:   newFakeFlightRepo(),
		aircraft:  newFakeAircraftRepo(),
		squawks:   newFakeSquawkRepo(),
		requests:  newFakeRequestRepo(),
		generator: &fakeGenerator{},
		notifier:  &fakeNotifier{},
	}
	f.aircraft.put(&entity.Aircraft{ID: "aircraft-1", TailNumber: "N12345", Status: entity.AircraftStatusAvailable})
	sm := NewRescheduleStateMachine(f.flights, f.requests, f.notifier, logger.NewNop(), testMetrics(), 48*time.Hour)
	f.cascade = NewGroundingCascade(
		f.flights, f.aircraft, f.squawks, f.generator, sm,
		f.notifier, logger.NewNop(), testMetrics(), 3, time.Second,
	)
	return f
}

func (f *cascadeFixture) seedFlights(n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("flight-%d", i+1)
		flight := confirmedFlight(id)
		flight.StudentID = fmt.Sprintf("student-%d", i+1)
		flight.ScheduledStart = time.Now().Add(time.Duration(i+1) * 24 * time.Hour)
		flight.ScheduledEnd = flight.ScheduledStart.Add(2 * time.Hour)
		f.flights.put(flight)
		ids[i] = id
	}
	return ids
}

func groundingSquawk() *entity.Squawk {
	return &entity.Squawk{
		AircraftID:  "aircraft-1",
		ReportedBy:  "instructor-1",
		Severity:    entity.SeverityGrounding,
		Status:      entity.SquawkStatusOpen,
		Description: "metal shavings in the oil filter",
	}
}

func TestFileSquawkValidation(t *testing.T) {
	f := newCascadeFixture(t)

	cases := []struct {
		name   string
		mutate func(s *entity.Squawk)
	}{
		{"missing aircraft", func(s *entity.Squawk) { s.AircraftID = "" }},
		{"missing description", func(s *entity.Squawk) { s.Description = "" }},
		{"bad severity", func(s *entity.Squawk) { s.Severity = "CATASTROPHIC" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := groundingSquawk()
			tc.mutate(s)
			_, err := f.cascade.FileSquawk(context.Background(), s)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestFileSquawkUnknownAircraft(t *testing.T) {
	f := newCascadeFixture(t)
	s := groundingSquawk()
	s.AircraftID = "aircraft-9"

	_, err := f.cascade.FileSquawk(context.Background(), s)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFileSquawkMinorSeverityHasNoSideEffects(t *testing.T) {
	f := newCascadeFixture(t)
	f.seedFlights(3)

	s := groundingSquawk()
	s.Severity = entity.SeverityMinor
	result, err := f.cascade.FileSquawk(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Grounded)
	assert.Zero(t, result.FlightsCancelled)

	ac, err := f.aircraft.FindByID(context.Background(), "aircraft-1")
	require.NoError(t, err)
	assert.Equal(t, entity.AircraftStatusAvailable, ac.Status)
	for i := 1; i <= 3; i++ {
		assert.Equal(t, entity.FlightStatusConfirmed, f.flights.get(fmt.Sprintf("flight-%d", i)).Status)
	}
}

func TestGroundingCancelsEveryFutureFlight(t *testing.T) {
	f := newCascadeFixture(t)
	ids := f.seedFlights(5)

	// A completed flight on the same tail stays untouched.
	done := confirmedFlight("flight-done")
	done.Status = entity.FlightStatusCompleted
	f.flights.put(done)

	result, err := f.cascade.FileSquawk(context.Background(), groundingSquawk())
	require.NoError(t, err)
	f.cascade.Wait()

	assert.True(t, result.Grounded)
	assert.Equal(t, 5, result.ImpactedFlights)
	assert.Equal(t, int64(5), result.FlightsCancelled)
	assert.ElementsMatch(t, ids, result.Squawk.ImpactedFlightIDs)

	ac, err := f.aircraft.FindByID(context.Background(), "aircraft-1")
	require.NoError(t, err)
	assert.Equal(t, entity.AircraftStatusGrounded, ac.Status)

	for _, id := range ids {
		assert.Equal(t, entity.FlightStatusMaintenanceCancelled, f.flights.get(id).Status)
		req, err := f.requests.FindOpenByFlight(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, entity.RequestStatusPendingStudent, req.Status)
	}
	assert.Equal(t, entity.FlightStatusCompleted, f.flights.get("flight-done").Status)

	sent := f.notifier.byType(repository.NotifyRescheduleOptions)
	assert.Len(t, sent, 5)
}

func TestGroundingGenerationFailureLeavesFlightCancelled(t *testing.T) {
	f := newCascadeFixture(t)
	f.seedFlights(2)
	f.generator.generate = func(ctx context.Context, flight *entity.Flight) ([]entity.Suggestion, string, error) {
		if flight.ID == "flight-1" {
			return nil, "", apperr.Unavailablef("planner down")
		}
		return []entity.Suggestion{suggestionAt(flight.ScheduledStart.Add(24 * time.Hour))}, "", nil
	}

	_, err := f.cascade.FileSquawk(context.Background(), groundingSquawk())
	require.NoError(t, err)
	f.cascade.Wait()

	// One flight stays cancelled without a request; its student is
	// notified. The other is unaffected by the failure.
	_, err = f.requests.FindOpenByFlight(context.Background(), "flight-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, entity.FlightStatusMaintenanceCancelled, f.flights.get("flight-1").Status)

	_, err = f.requests.FindOpenByFlight(context.Background(), "flight-2")
	assert.NoError(t, err)

	cancelled := f.notifier.byType(repository.NotifyFlightCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, "student-1", cancelled[0].RecipientID)
}

func TestRegroundingRecomputesCascade(t *testing.T) {
	f := newCascadeFixture(t)
	f.seedFlights(2)

	first, err := f.cascade.FileSquawk(context.Background(), groundingSquawk())
	require.NoError(t, err)
	f.cascade.Wait()
	require.True(t, first.Grounded)

	// A flight booked onto the tail after the first grounding.
	late := confirmedFlight("flight-late")
	late.ScheduledStart = time.Now().Add(96 * time.Hour)
	f.flights.put(late)

	second, err := f.cascade.FileSquawk(context.Background(), groundingSquawk())
	require.NoError(t, err)
	f.cascade.Wait()

	assert.False(t, second.Grounded)
	assert.Equal(t, 1, second.ImpactedFlights)
	assert.Equal(t, int64(1), second.FlightsCancelled)
	assert.Equal(t, entity.FlightStatusMaintenanceCancelled, f.flights.get("flight-late").Status)
}

func TestRescheduleFlightRequiresCancelledStatus(t *testing.T) {
	f := newCascadeFixture(t)
	f.flights.put(confirmedFlight("flight-1"))

	err := f.cascade.RescheduleFlight(context.Background(), "flight-1")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRescheduleFlightRetriesRequestlessFlight(t *testing.T) {
	f := newCascadeFixture(t)
	flight := cancelledFlight("flight-1")
	flight.Status = entity.FlightStatusMaintenanceCancelled
	f.flights.put(flight)

	require.NoError(t, f.cascade.RescheduleFlight(context.Background(), "flight-1"))

	req, err := f.requests.FindOpenByFlight(context.Background(), "flight-1")
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPendingStudent, req.Status)

	// A second attempt conflicts with the now-open request.
	err = f.cascade.RescheduleFlight(context.Background(), "flight-1")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}
