package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics for the rescheduling engine
type Metrics struct {
	JobsSubmitted      *prometheus.CounterVec
	JobsCompleted      *prometheus.CounterVec
	JobsFailed         *prometheus.CounterVec
	FlightsCancelled   *prometheus.CounterVec
	RequestsCreated    prometheus.Counter
	RequestsAccepted   prometheus.Counter
	RequestsRejected   prometheus.Counter
	RequestsExpired    prometheus.Counter
	EvaluationTime     prometheus.Histogram
	CascadeFlights     prometheus.Counter
	GenerationFailures prometheus.Counter
	NotifyFailures     prometheus.Counter
}

// NewMetrics creates new prometheus metrics under the given namespace
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		JobsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "The total number of jobs submitted to the pipeline",
		}, []string{"kind"}),
		JobsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_completed_total",
			Help:      "The total number of jobs that finished successfully",
		}, []string{"kind"}),
		JobsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "The total number of jobs that settled as failed",
		}, []string{"kind"}),
		FlightsCancelled: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_cancelled_total",
			Help:      "The total number of flights cancelled, by cause",
		}, []string{"cause"}),
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reschedule_requests_created_total",
			Help:      "The total number of reschedule requests created",
		}),
		RequestsAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reschedule_requests_accepted_total",
			Help:      "The total number of reschedule requests accepted",
		}),
		RequestsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reschedule_requests_rejected_total",
			Help:      "The total number of reschedule requests rejected",
		}),
		RequestsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reschedule_requests_expired_total",
			Help:      "The total number of reschedule requests expired",
		}),
		EvaluationTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "safety_evaluation_seconds",
			Help:      "Time taken to run one flight safety check",
			Buckets:   prometheus.DefBuckets,
		}),
		CascadeFlights: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_flights_total",
			Help:      "The total number of flights processed by grounding cascades",
		}),
		GenerationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_generation_failures_total",
			Help:      "The total number of suggestion generations that failed or timed out",
		}),
		NotifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "The total number of notification deliveries that failed",
		}),
	}
}
