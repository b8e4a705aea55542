package http

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors the transport layer records into.
type Metrics struct {
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	quizSubmissions  *prometheus.CounterVec
	challengeResults *prometheus.CounterVec
	reviews          *prometheus.CounterVec
}

// NewMetrics registers collectors on reg; pass prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route", "method"},
		),
		quizSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_submissions_total",
				Help: "Quiz submissions by outcome",
			},
			[]string{"outcome"},
		),
		challengeResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_completions_total",
				Help: "Challenge completion requests by outcome",
			},
			[]string{"outcome"},
		),
		reviews: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "challenge_submission_reviews_total",
				Help: "Challenge submission reviews by outcome",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(m.requests, m.duration, m.quizSubmissions, m.challengeResults, m.reviews)
	return m
}

func (m *Metrics) quizOutcome(outcome string) {
	if m == nil {
		return
	}
	m.quizSubmissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) challengeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.challengeResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) reviewOutcome(outcome string) {
	if m == nil {
		return
	}
	m.reviews.WithLabelValues(outcome).Inc()
}
