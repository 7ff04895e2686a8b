package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/apperr"
	"flightsched-service/pkg/metrics"
)

var (
	metricsOnce   sync.Once
	sharedMetrics *metrics.Metrics
)

// testMetrics returns the package-wide metrics instance; promauto
// registers against the default registry, so there can be only one.
func testMetrics() *metrics.Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = metrics.NewMetrics("usecase_test")
	})
	return sharedMetrics
}

// --- flights ---

type fakeFlightRepo struct {
	mu      sync.Mutex
	flights map[string]*entity.Flight
	seq     int
}

func newFakeFlightRepo() *fakeFlightRepo {
	return &fakeFlightRepo{flights: map[string]*entity.Flight{}}
}

func (r *fakeFlightRepo) put(f *entity.Flight) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *f
	r.flights[f.ID] = &cp
}

func (r *fakeFlightRepo) get(id string) *entity.Flight {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.flights[id]; ok {
		cp := *f
		return &cp
	}
	return nil
}

func (r *fakeFlightRepo) Create(ctx context.Context, flight *entity.Flight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if flight.ID == "" {
		for {
			r.seq++
			flight.ID = fmt.Sprintf("flight-%d", r.seq)
			if _, exists := r.flights[flight.ID]; !exists {
				break
			}
		}
	}
	now := time.Now()
	flight.CreatedAt = now
	flight.UpdatedAt = now
	cp := *flight
	r.flights[flight.ID] = &cp
	return nil
}

func (r *fakeFlightRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flights, id)
	return nil
}

func (r *fakeFlightRepo) FindByID(ctx context.Context, id string) (*entity.Flight, error) {
	if f := r.get(id); f != nil {
		return f, nil
	}
	return nil, apperr.NotFoundf("flight %s", id)
}

func (r *fakeFlightRepo) FindFutureByAircraft(ctx context.Context, aircraftID string, after time.Time, statuses []string) ([]*entity.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := toSet(statuses)
	var out []*entity.Flight
	for _, f := range r.flights {
		if f.AircraftID == aircraftID && f.ScheduledStart.After(after) && allowed[f.Status] {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFlightRepo) FindScheduledBetween(ctx context.Context, from, to time.Time, statuses []string) ([]*entity.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := toSet(statuses)
	var out []*entity.Flight
	for _, f := range r.flights {
		if !f.ScheduledStart.Before(from) && f.ScheduledStart.Before(to) && allowed[f.Status] {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeFlightRepo) UpdateStatus(ctx context.Context, id string, fromStatuses []string, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[id]
	if !ok || !toSet(fromStatuses)[f.Status] {
		return apperr.Conflictf("flight %s is not in %v", id, fromStatuses)
	}
	f.Status = to
	f.UpdatedAt = time.Now()
	return nil
}

func (r *fakeFlightRepo) BulkUpdateStatus(ctx context.Context, ids []string, fromStatuses []string, to string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := toSet(fromStatuses)
	var n int64
	for _, id := range ids {
		if f, ok := r.flights[id]; ok && allowed[f.Status] {
			f.Status = to
			f.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (r *fakeFlightRepo) SetOverride(ctx context.Context, id, approverID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[id]
	if !ok || f.Status != entity.FlightStatusWeatherCancelled {
		return apperr.Conflictf("flight %s is not weather-cancelled", id)
	}
	f.Status = entity.FlightStatusConfirmed
	f.WeatherOverride = true
	f.OverrideReason = reason
	f.OverrideBy = approverID
	f.UpdatedAt = time.Now()
	return nil
}

// --- reschedule requests ---

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*entity.RescheduleRequest
	seq      int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: map[string]*entity.RescheduleRequest{}}
}

func (r *fakeRequestRepo) get(id string) *entity.RescheduleRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.requests[id]; ok {
		cp := *req
		return &cp
	}
	return nil
}

func (r *fakeRequestRepo) Create(ctx context.Context, req *entity.RescheduleRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.FlightID == req.FlightID && existing.IsOpen() {
			return apperr.Conflictf("flight %s already has an open reschedule request", req.FlightID)
		}
	}
	r.seq++
	req.ID = fmt.Sprintf("req-%d", r.seq)
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) FindByID(ctx context.Context, id string) (*entity.RescheduleRequest, error) {
	if req := r.get(id); req != nil {
		return req, nil
	}
	return nil, apperr.NotFoundf("reschedule request %s", id)
}

func (r *fakeRequestRepo) FindOpenByFlight(ctx context.Context, flightID string) (*entity.RescheduleRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.FlightID == flightID && req.IsOpen() {
			cp := *req
			return &cp, nil
		}
	}
	return nil, apperr.NotFoundf("no open reschedule request for flight %s", flightID)
}

func (r *fakeRequestRepo) SelectOption(ctx context.Context, id string, option int, selectedInstructorID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != entity.RequestStatusPendingStudent {
		return apperr.Conflictf("reschedule request %s is not awaiting the student", id)
	}
	req.Status = entity.RequestStatusPendingInstructor
	req.SelectedOption = &option
	req.SelectedBy = entity.SelectedByStudent
	req.SelectedInstructorID = selectedInstructorID
	req.StudentConfirmedAt = &at
	req.UpdatedAt = at
	return nil
}

func (r *fakeRequestRepo) Accept(ctx context.Context, id string, newFlightID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != entity.RequestStatusPendingInstructor {
		return apperr.Conflictf("reschedule request %s is not awaiting the instructor", id)
	}
	req.Status = entity.RequestStatusAccepted
	req.NewFlightID = newFlightID
	req.InstructorConfirmedAt = &at
	req.UpdatedAt = at
	return nil
}

func (r *fakeRequestRepo) Reject(ctx context.Context, id string, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || !req.IsOpen() {
		return apperr.Conflictf("reschedule request %s is not open", id)
	}
	req.Status = entity.RequestStatusRejected
	req.RejectReason = reason
	req.UpdatedAt = at
	return nil
}

func (r *fakeRequestRepo) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, req := range r.requests {
		if req.IsOpen() && req.ExpiredAt(now) {
			req.Status = entity.RequestStatusExpired
			req.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (r *fakeRequestRepo) ListForInstructor(ctx context.Context, instructorID string) ([]*entity.RescheduleRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.RescheduleRequest
	for _, req := range r.requests {
		visible := false
		if req.Status == entity.RequestStatusPendingInstructor {
			visible = req.SelectedInstructorID == instructorID
		} else {
			visible = req.OriginalInstructorID == instructorID
		}
		if visible {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- squawks ---

type fakeSquawkRepo struct {
	mu      sync.Mutex
	squawks map[string]*entity.Squawk
	seq     int
}

func newFakeSquawkRepo() *fakeSquawkRepo {
	return &fakeSquawkRepo{squawks: map[string]*entity.Squawk{}}
}

func (r *fakeSquawkRepo) Create(ctx context.Context, squawk *entity.Squawk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	squawk.ID = fmt.Sprintf("squawk-%d", r.seq)
	squawk.CreatedAt = time.Now()
	cp := *squawk
	r.squawks[squawk.ID] = &cp
	return nil
}

func (r *fakeSquawkRepo) FindByID(ctx context.Context, id string) (*entity.Squawk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.squawks[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, apperr.NotFoundf("squawk %s", id)
}

func (r *fakeSquawkRepo) SetImpactedFlights(ctx context.Context, id string, flightIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.squawks[id]; ok {
		s.ImpactedFlightIDs = flightIDs
		return nil
	}
	return apperr.NotFoundf("squawk %s", id)
}

// --- aircraft ---

type fakeAircraftRepo struct {
	mu       sync.Mutex
	aircraft map[string]*entity.Aircraft
}

func newFakeAircraftRepo() *fakeAircraftRepo {
	return &fakeAircraftRepo{aircraft: map[string]*entity.Aircraft{}}
}

func (r *fakeAircraftRepo) put(a *entity.Aircraft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.aircraft[a.ID] = &cp
}

func (r *fakeAircraftRepo) FindByID(ctx context.Context, id string) (*entity.Aircraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.aircraft[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, apperr.NotFoundf("aircraft %s", id)
}

func (r *fakeAircraftRepo) Ground(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.aircraft[id]
	if !ok {
		return false, apperr.NotFoundf("aircraft %s", id)
	}
	if a.Status == entity.AircraftStatusGrounded {
		return false, nil
	}
	a.Status = entity.AircraftStatusGrounded
	return true, nil
}

// --- weather checks ---

type fakeCheckRepo struct {
	mu     sync.Mutex
	checks []*entity.WeatherCheck
}

func newFakeCheckRepo() *fakeCheckRepo { return &fakeCheckRepo{} }

func (r *fakeCheckRepo) Insert(ctx context.Context, check *entity.WeatherCheck) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *check
	r.checks = append(r.checks, &cp)
	return nil
}

func (r *fakeCheckRepo) LatestByFlight(ctx context.Context, flightID string) (*entity.WeatherCheck, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.checks) - 1; i >= 0; i-- {
		if r.checks[i].FlightID == flightID {
			cp := *r.checks[i]
			return &cp, nil
		}
	}
	return nil, apperr.NotFoundf("no weather check for flight %s", flightID)
}

func (r *fakeCheckRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.checks)
}

// --- reference data ---

type fakeMinimumsRepo struct {
	minimums *entity.Minimums
	err      error
}

func (r *fakeMinimumsRepo) Resolve(ctx context.Context, trainingLevel, aircraftType, flightType string) (*entity.Minimums, error) {
	if r.err != nil {
		return nil, r.err
	}
	cp := *r.minimums
	return &cp, nil
}

type fakeAirportRepo struct {
	runwayHeading float64
}

func (r *fakeAirportRepo) GetByCode(ctx context.Context, code string) (*entity.Airport, error) {
	return &entity.Airport{Code: code, TzName: "UTC", RunwayHeading: r.runwayHeading}, nil
}

// --- collaborators ---

type fakeWeatherProvider struct {
	mu      sync.Mutex
	reading *entity.WeatherReading
	err     error
}

func (p *fakeWeatherProvider) Fetch(ctx context.Context, airportCode string) (*entity.WeatherReading, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	cp := *p.reading
	return &cp, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	generate func(ctx context.Context, flight *entity.Flight) ([]entity.Suggestion, string, error)
	calls    int
}

func (g *fakeGenerator) Generate(ctx context.Context, flight *entity.Flight) ([]entity.Suggestion, string, error) {
	g.mu.Lock()
	g.calls++
	fn := g.generate
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx, flight)
	}
	return []entity.Suggestion{suggestionAt(flight.ScheduledStart.Add(24 * time.Hour))}, "next clear slot", nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type notification struct {
	RecipientID string
	Type        string
	Payload     map[string]interface{}
}

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	sent  []notification
}

func (n *fakeNotifier) Notify(ctx context.Context, recipientID, notifType string, payload map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification{RecipientID: recipientID, Type: notifType, Payload: payload})
	return nil
}

func (n *fakeNotifier) byType(notifType string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, s := range n.sent {
		if s.Type == notifType {
			out = append(out, s)
		}
	}
	return out
}

// --- helpers ---

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func suggestionAt(start time.Time) entity.Suggestion {
	return entity.Suggestion{
		InstructorID: "instructor-2",
		AircraftID:   "aircraft-2",
		Slot:         entity.Slot{Start: start, End: start.Add(90 * time.Minute)},
	}
}

var _ repository.FlightRepository = (*fakeFlightRepo)(nil)
var _ repository.RescheduleRequestRepository = (*fakeRequestRepo)(nil)
var _ repository.SquawkRepository = (*fakeSquawkRepo)(nil)
var _ repository.AircraftRepository = (*fakeAircraftRepo)(nil)
var _ repository.WeatherCheckRepository = (*fakeCheckRepo)(nil)
var _ repository.MinimumsRepository = (*fakeMinimumsRepo)(nil)
var _ repository.AirportRepository = (*fakeAirportRepo)(nil)
var _ repository.WeatherProvider = (*fakeWeatherProvider)(nil)
var _ repository.SuggestionGenerator = (*fakeGenerator)(nil)
var _ repository.Notifier = (*fakeNotifier)(nil)
