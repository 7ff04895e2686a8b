package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/pkg/apperr"
	"flightsched-service/pkg/logger"
	"flightsched-service/pkg/metrics"
)

var (
	metricsOnce   sync.Once
	sharedMetrics *metrics.Metrics
)

func testMetrics() *metrics.Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = metrics.NewMetrics("pipeline_test")
	})
	return sharedMetrics
}

func fastOptions() Options {
	return Options{
		Workers:     1,
		MaxAttempts: 3,
		BaseBackoff: 5 * time.Millisecond,
		JobTimeout:  time.Second,
		SyncWait:    2 * time.Second,
	}
}

func startPipeline(t *testing.T, opts Options, handler Handler) *Pipeline {
	t.Helper()
	p := New(opts, map[entity.JobKind]Handler{
		entity.JobKindWeatherCheck: handler,
	}, logger.NewNop(), testMetrics())
	p.Start(context.Background())
	t.Cleanup(p.Stop)
	return p
}

func checkRequest(flightID string, priority int, nonce string) SubmitRequest {
	return SubmitRequest{
		Kind:           entity.JobKindWeatherCheck,
		FlightID:       flightID,
		Priority:       priority,
		IdempotencyKey: Key(flightID, entity.JobKindWeatherCheck, nonce),
	}
}

func drain(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Drain(ctx))
}

func TestHigherPriorityRunsFirst(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	var order []string

	p := startPipeline(t, fastOptions(), func(ctx context.Context, job *entity.Job) error {
		if job.FlightID == "gate" {
			<-gate
			return nil
		}
		mu.Lock()
		order = append(order, job.FlightID)
		mu.Unlock()
		return nil
	})

	// Occupy the only worker so the rest queue up behind it.
	p.Submit(checkRequest("gate", 100, ""))
	time.Sleep(20 * time.Millisecond)

	p.Submit(checkRequest("low", 10, ""))
	p.Submit(checkRequest("mid", 50, ""))
	p.Submit(checkRequest("high", 100, ""))
	close(gate)
	drain(t, p)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestEqualPriorityRunsInSubmissionOrder(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	var order []string

	p := startPipeline(t, fastOptions(), func(ctx context.Context, job *entity.Job) error {
		if job.FlightID == "gate" {
			<-gate
			return nil
		}
		mu.Lock()
		order = append(order, job.FlightID)
		mu.Unlock()
		return nil
	})

	p.Submit(checkRequest("gate", 100, ""))
	time.Sleep(20 * time.Millisecond)

	p.Submit(checkRequest("first", 50, ""))
	p.Submit(checkRequest("second", 50, ""))
	p.Submit(checkRequest("third", 50, ""))
	close(gate)
	drain(t, p)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestRetriableFailureRetriesThenCompletes(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	p := startPipeline(t, fastOptions(), func(ctx context.Context, job *entity.Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return apperr.Unavailablef("metar source down")
		}
		return nil
	})

	state, err := p.RunOne(context.Background(), checkRequest("flight-1", 50, "a"))
	require.NoError(t, err)
	assert.Equal(t, entity.JobStateCompleted, state)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestRetriableFailureExhaustsAttempts(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	p := startPipeline(t, fastOptions(), func(ctx context.Context, job *entity.Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return apperr.Unavailablef("still down")
	})

	state, err := p.RunOne(context.Background(), checkRequest("flight-1", 50, "a"))
	require.NoError(t, err)
	assert.Equal(t, entity.JobStateFailed, state)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, attempts)
}

func TestNonRetriableFailureSettlesImmediately(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	p := startPipeline(t, fastOptions(), func(ctx context.Context, job *entity.Job) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return apperr.Validationf("bad flight")
	})

	state, err := p.RunOne(context.Background(), checkRequest("flight-1", 50, "a"))
	require.NoError(t, err)
	assert.Equal(t, entity.JobStateFailed, state)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, attempts)
}

func TestDuplicateKeyDedupesLiveJob(t *testing.T) {
	gate := make(chan struct{})
	p := startPipeline(t, fastOptions(), func(ctx context.Context, job *entity.Job) error {
		<-gate
		return nil
	})

	first, fresh := p.Submit(checkRequest("flight-1", 50, "batch"))
	require.True(t, fresh)

	second, fresh := p.Submit(checkRequest("flight-1", 50, "batch"))
	assert.False(t, fresh)
	assert.Equal(t, first.ID, second.ID)

	close(gate)
	drain(t, p)

	// Once settled, the same key admits a new job.
	third, fresh := p.Submit(checkRequest("flight-1", 50, "batch"))
	assert.True(t, fresh)
	assert.NotEqual(t, first.ID, third.ID)
	drain(t, p)
}

func TestSubmitBatchCounts(t *testing.T) {
	gate := make(chan struct{})
	p := startPipeline(t, fastOptions(), func(ctx context.Context, job *entity.Job) error {
		<-gate
		return nil
	})

	result := p.SubmitBatch([]SubmitRequest{
		checkRequest("flight-1", 50, "batch"),
		checkRequest("flight-2", 50, "batch"),
		checkRequest("flight-1", 50, "batch"),
	})
	assert.Equal(t, 2, result.Submitted)
	assert.Equal(t, 1, result.Deduped)

	close(gate)
	drain(t, p)
}

func TestRunOneWaitCeiling(t *testing.T) {
	release := make(chan struct{})
	opts := fastOptions()
	opts.SyncWait = 50 * time.Millisecond

	p := startPipeline(t, opts, func(ctx context.Context, job *entity.Job) error {
		<-release
		return nil
	})

	state, err := p.RunOne(context.Background(), checkRequest("flight-1", 50, "slow"))
	require.NoError(t, err)
	assert.Equal(t, entity.JobStateFailed, state)

	// The job kept running and settles on its own.
	close(release)
	drain(t, p)
	statuses := p.StatusByFlights([]string{"flight-1"})
	assert.Equal(t, entity.JobStateCompleted, statuses["flight-1"])
}

func TestStatusByFlightsReportsBestState(t *testing.T) {
	var mu sync.Mutex
	failed := false

	p := startPipeline(t, fastOptions(), func(ctx context.Context, job *entity.Job) error {
		mu.Lock()
		defer mu.Unlock()
		if !failed {
			failed = true
			return apperr.Validationf("first attempt rejected")
		}
		return nil
	})

	state, err := p.RunOne(context.Background(), checkRequest("flight-1", 50, "a"))
	require.NoError(t, err)
	require.Equal(t, entity.JobStateFailed, state)

	state, err = p.RunOne(context.Background(), checkRequest("flight-1", 50, "b"))
	require.NoError(t, err)
	require.Equal(t, entity.JobStateCompleted, state)

	// One failed and one completed item: the flight reports completed.
	statuses := p.StatusByFlights([]string{"flight-1", "flight-9"})
	assert.Equal(t, entity.JobStateCompleted, statuses["flight-1"])
	assert.NotContains(t, statuses, "flight-9")
}

func TestUnknownKindSettlesFailed(t *testing.T) {
	p := startPipeline(t, fastOptions(), func(ctx context.Context, job *entity.Job) error {
		return nil
	})

	state, err := p.RunOne(context.Background(), SubmitRequest{
		Kind:           entity.JobKindRescheduleGeneration,
		FlightID:       "flight-1",
		Priority:       50,
		IdempotencyKey: Key("flight-1", entity.JobKindRescheduleGeneration, "a"),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.JobStateFailed, state)
}

func TestPriorityForStart(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 100, PriorityForStart(now.Add(6*time.Hour), now))
	assert.Equal(t, 50, PriorityForStart(now.Add(48*time.Hour), now))
	assert.Equal(t, 10, PriorityForStart(now.Add(120*time.Hour), now))
}
