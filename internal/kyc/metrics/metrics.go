// Package metrics exposes verification counters and provider latency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeVerified    = "verified"
	OutcomeFailed      = "failed"
	OutcomeUnavailable = "unavailable"
	OutcomeUnknown     = "unknown_challenge"
)

type Metrics struct {
	challengesIssued   prometheus.Counter
	verificationsTotal *prometheus.CounterVec
	panRecorded        prometheus.Counter
	providerLatency    *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		challengesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyc_aadhaar_challenges_issued_total",
			Help: "Number of Aadhaar OTP challenges issued.",
		}),
		verificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_aadhaar_verifications_total",
			Help: "Aadhaar verification resolutions by outcome.",
		}, []string{"outcome"}),
		panRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kyc_pan_documents_recorded_total",
			Help: "PAN documents recorded for manual review.",
		}),
		providerLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kyc_provider_request_duration_seconds",
			Help:    "Identity provider round-trip latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) ChallengeIssued() {
	if m == nil {
		return
	}
	m.challengesIssued.Inc()
}

func (m *Metrics) VerificationResolved(outcome string) {
	if m == nil {
		return
	}
	m.verificationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PANRecorded() {
	if m == nil {
		return
	}
	m.panRecorded.Inc()
}

func (m *Metrics) ObserveProvider(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(operation).Observe(d.Seconds())
}
