package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// ReceiptAnalyzeTotal counts receipt analysis outcomes.
	ReceiptAnalyzeTotal *prometheus.CounterVec
	// ReceiptAnalyzeDuration records vision API latency in milliseconds.
	ReceiptAnalyzeDuration prometheus.Histogram
	// SessionsCreatedTotal counts created bill sessions.
	SessionsCreatedTotal prometheus.Counter
	// ParticipantJoinsTotal counts participants added across all sessions.
	ParticipantJoinsTotal prometheus.Counter
	// ClaimsUpdatesTotal counts claim-set replacements by outcome.
	ClaimsUpdatesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		ReceiptAnalyzeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_analyze_total",
			Help:      "Count of receipt analysis outcomes.",
		}, []string{"result"})
		ReceiptAnalyzeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "receipt_analyze_duration_ms",
			Help:      "Latency of vision API receipt analysis in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2500, 5000, 10000, 20000, 40000},
		})
		SessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Number of bill sessions created.",
		})
		ParticipantJoinsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participant_joins_total",
			Help:      "Number of participants added across all sessions.",
		})
		ClaimsUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_updates_total",
			Help:      "Count of participant claim-set replacements by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, ReceiptAnalyzeTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptAnalyzeTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptAnalyzeDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				ReceiptAnalyzeDuration = v
			}
		})
		mustRegisterCollector(reg, SessionsCreatedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				SessionsCreatedTotal = v
			}
		})
		mustRegisterCollector(reg, ParticipantJoinsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ParticipantJoinsTotal = v
			}
		})
		mustRegisterCollector(reg, ClaimsUpdatesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ClaimsUpdatesTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, c prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(err)
	}
}

// IncReceiptAnalyze records one analysis outcome. Safe to call before
// registration; it is a no-op then.
func IncReceiptAnalyze(result string) {
	if ReceiptAnalyzeTotal != nil {
		ReceiptAnalyzeTotal.WithLabelValues(result).Inc()
	}
}

// ObserveReceiptAnalyzeDuration records one analysis latency sample.
func ObserveReceiptAnalyzeDuration(ms float64) {
	if ReceiptAnalyzeDuration != nil {
		ReceiptAnalyzeDuration.Observe(ms)
	}
}

// IncSessionCreated records one created session.
func IncSessionCreated() {
	if SessionsCreatedTotal != nil {
		SessionsCreatedTotal.Inc()
	}
}

// IncParticipantJoined records one participant join.
func IncParticipantJoined() {
	if ParticipantJoinsTotal != nil {
		ParticipantJoinsTotal.Inc()
	}
}

// IncClaimsUpdate records one claims replacement outcome.
func IncClaimsUpdate(result string) {
	if ClaimsUpdatesTotal != nil {
		ClaimsUpdatesTotal.WithLabelValues(result).Inc()
	}
}
