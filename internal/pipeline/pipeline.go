package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/pkg/apperr"
	"flightsched-service/pkg/logger"
	"flightsched-service/pkg/metrics"
)

// Handler executes one job of a given kind
type Handler func(ctx context.Context, job *entity.Job) error

// Options configures a pipeline instance
type Options struct {
	Workers     int
	MaxAttempts int
	BaseBackoff time.Duration
	JobTimeout  time.Duration
	SyncWait    time.Duration
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 5 * time.Second
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 60 * time.Second
	}
	if opts.SyncWait <= 0 {
		opts.SyncWait = 30 * time.Second
	}
	return opts
}

// Pipeline is the in-process priority job queue that decouples safety
// checks and reschedule generation from the request path. It is an
// injected service with an explicit lifecycle so every test can run an
// isolated instance.
type Pipeline struct {
	opts     Options
	handlers map[entity.JobKind]Handler
	logger   logger.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	queue   jobHeap
	jobs    map[string]*jobItem
	byKey   map[string]*jobItem
	seq     int64
	started bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type jobItem struct {
	job   entity.Job
	seq   int64
	index int
	done  chan struct{}
}

// SubmitRequest describes one unit of work
type SubmitRequest struct {
	Kind           entity.JobKind
	FlightID       string
	Payload        map[string]interface{}
	Priority       int
	IdempotencyKey string
}

// BatchResult reports counts for a multi-item submission
type BatchResult struct {
	Submitted int
	Deduped   int
}

// New creates a pipeline; call Start before submitting
func New(opts Options, handlers map[entity.JobKind]Handler, logger logger.Logger, metrics *metrics.Metrics) *Pipeline {
	return &Pipeline{
		opts:     opts.withDefaults(),
		handlers: handlers,
		logger:   logger,
		metrics:  metrics,
		jobs:     make(map[string]*jobItem),
		byKey:    make(map[string]*jobItem),
		wake:     make(chan struct{}, 1),
	}
}

// Key derives an idempotency key from the flight, the job kind and a
// submission nonce
func Key(flightID string, kind entity.JobKind, nonce string) string {
	return fmt.Sprintf("%s:%s:%s", flightID, kind, nonce)
}

// PriorityForStart computes urgency from how soon the flight departs
func PriorityForStart(start, now time.Time) int {
	until := start.Sub(now)
	switch {
	case until <= 24*time.Hour:
		return 100
	case until <= 72*time.Hour:
		return 50
	}
	return 10
}

// Start launches the worker pool
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("Job pipeline started", "workers", p.opts.Workers)
}

// Stop cancels the workers and waits for them to exit. In-flight jobs
// observe the cancelled context.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
	p.logger.Info("Job pipeline stopped")
}

// Drain waits until no job is waiting or active, or until ctx expires
func (p *Pipeline) Drain(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if p.busy() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) busy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, item := range p.jobs {
		if item.job.State == entity.JobStateWaiting || item.job.State == entity.JobStateActive {
			n++
		}
	}
	return n
}

// Submit enqueues one job. A duplicate idempotency key with a live
// (waiting or active) item returns the existing job instead of
// double-processing the flight.
func (p *Pipeline) Submit(req SubmitRequest) (entity.Job, bool) {
	item, fresh := p.submit(req)
	p.mu.Lock()
	defer p.mu.Unlock()
	return item.job, fresh
}

// SubmitBatch enqueues many jobs and reports counts, never a single
// pass/fail signal
func (p *Pipeline) SubmitBatch(reqs []SubmitRequest) BatchResult {
	var result BatchResult
	for _, req := range reqs {
		if _, fresh := p.submit(req); fresh {
			result.Submitted++
		} else {
			result.Deduped++
		}
	}
	return result
}

func (p *Pipeline) submit(req SubmitRequest) (*jobItem, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := req.IdempotencyKey
	if key == "" {
		key = Key(req.FlightID, req.Kind, fmt.Sprintf("%d", p.seq))
	}
	if existing, ok := p.byKey[key]; ok {
		if existing.job.State == entity.JobStateWaiting || existing.job.State == entity.JobStateActive {
			return existing, false
		}
	}

	p.seq++
	item := &jobItem{
		job: entity.Job{
			ID:             fmt.Sprintf("job-%d", p.seq),
			Kind:           req.Kind,
			FlightID:       req.FlightID,
			Payload:        req.Payload,
			Priority:       req.Priority,
			IdempotencyKey: key,
			State:          entity.JobStateWaiting,
			SubmittedAt:    time.Now(),
		},
		seq:   p.seq,
		index: -1,
		done:  make(chan struct{}),
	}
	p.jobs[item.job.ID] = item
	p.byKey[key] = item
	p.push(item)
	p.metrics.JobsSubmitted.WithLabelValues(string(req.Kind)).Inc()
	p.signal()
	return item, true
}

// RunOne submits a single job and blocks until it settles, with an
// upper-bound wait. A wait past the bound reports FAILED rather than
// hanging; the job itself keeps running and stays queryable.
func (p *Pipeline) RunOne(ctx context.Context, req SubmitRequest) (string, error) {
	item, _ := p.submit(req)

	select {
	case <-item.done:
		p.mu.Lock()
		state := item.job.State
		p.mu.Unlock()
		return state, nil
	case <-time.After(p.opts.SyncWait):
		p.logger.Warn("Synchronous job wait timed out",
			"jobId", item.job.ID,
			"flightId", req.FlightID)
		return entity.JobStateFailed, nil
	case <-ctx.Done():
		return entity.JobStateFailed, ctx.Err()
	}
}

// stateRank orders states for per-flight reporting: a flight with one
// completed and one stale failed attempt reports completed.
var stateRank = map[string]int{
	entity.JobStateCompleted: 0,
	entity.JobStateActive:    1,
	entity.JobStateWaiting:   2,
	entity.JobStateFailed:    3,
}

// StatusByFlights groups items by their owning flight and reports the
// highest-priority observed state per flight
func (p *Pipeline) StatusByFlights(flightIDs []string) map[string]string {
	wanted := make(map[string]bool, len(flightIDs))
	for _, id := range flightIDs {
		wanted[id] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	result := make(map[string]string)
	for _, item := range p.jobs {
		if !wanted[item.job.FlightID] {
			continue
		}
		current, ok := result[item.job.FlightID]
		if !ok || stateRank[item.job.State] < stateRank[current] {
			result[item.job.FlightID] = item.job.State
		}
	}
	return result
}

// Job returns a snapshot of one job by id
func (p *Pipeline) Job(id string) (entity.Job, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.jobs[id]
	if !ok {
		return entity.Job{}, false
	}
	return item.job, true
}

func (p *Pipeline) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Pipeline) worker(id int) {
	defer p.wg.Done()
	for {
		item := p.popReady()
		if item == nil {
			select {
			case <-p.ctx.Done():
				return
			case <-p.wake:
			}
			continue
		}
		p.execute(item)
		// Another item may be ready; make sure some worker looks.
		p.signal()
	}
}

func (p *Pipeline) popReady() *jobItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil
	}
	item := p.pop()
	now := time.Now()
	item.job.State = entity.JobStateActive
	item.job.StartedAt = &now
	item.job.Attempts++
	return item
}

func (p *Pipeline) execute(item *jobItem) {
	p.mu.Lock()
	job := item.job
	p.mu.Unlock()

	handler, ok := p.handlers[job.Kind]
	if !ok {
		p.settle(item, fmt.Errorf("no handler for job kind %s: %w", job.Kind, apperr.ErrValidation))
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.opts.JobTimeout)
	err := handler(ctx, &job)
	cancel()
	p.settle(item, err)
}

// settle records one execution outcome: success completes the job,
// a retriable failure requeues it with exponential backoff and any
// other failure (or exhausted attempts) settles it as FAILED. Handler
// errors never crash the worker loop.
func (p *Pipeline) settle(item *jobItem, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	kind := string(item.job.Kind)

	if err == nil {
		item.job.State = entity.JobStateCompleted
		item.job.FinishedAt = &now
		item.job.LastError = ""
		close(item.done)
		p.metrics.JobsCompleted.WithLabelValues(kind).Inc()
		return
	}

	item.job.LastError = err.Error()

	if apperr.Retriable(err) && item.job.Attempts < p.opts.MaxAttempts {
		item.job.State = entity.JobStateWaiting
		backoff := p.opts.BaseBackoff << (item.job.Attempts - 1)
		p.logger.Warn("Job failed, retrying",
			"jobId", item.job.ID,
			"flightId", item.job.FlightID,
			"attempt", item.job.Attempts,
			"backoff", backoff,
			"error", err)
		time.AfterFunc(backoff, func() { p.requeue(item) })
		return
	}

	item.job.State = entity.JobStateFailed
	item.job.FinishedAt = &now
	close(item.done)
	p.metrics.JobsFailed.WithLabelValues(kind).Inc()
	p.logger.Error("Job settled as failed",
		"jobId", item.job.ID,
		"flightId", item.job.FlightID,
		"attempts", item.job.Attempts,
		"error", err)
}

func (p *Pipeline) requeue(item *jobItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if item.job.State != entity.JobStateWaiting || item.index >= 0 {
		return
	}
	p.push(item)
	p.signal()
}
