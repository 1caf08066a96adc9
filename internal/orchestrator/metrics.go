package orchestrator

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports completion pipeline counters to Prometheus.
type Metrics struct {
	attempts           *prometheus.CounterVec
	fallbacks          prometheus.Counter
	cacheHits          prometheus.Counter
	repairRetries      prometheus.Counter
	sanitizerFallbacks *prometheus.CounterVec
}

// NewMetrics registers the completion metrics on reg. A nil reg uses the
// default registerer; an already registered collector is reused.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "evalcoach"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Provider generation attempts by outcome.",
		}, []string{"provider", "outcome"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fallbacks_total",
			Help:      "Completions served by a provider other than the first one tried.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_cache_hits_total",
			Help:      "Completions served from the in-memory cache.",
		}),
		repairRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repair_retries_total",
			Help:      "Strict retry calls issued because a first draft failed validation.",
		}),
		sanitizerFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sanitizer_fallbacks_total",
			Help:      "Structured output salvages by fallback stage.",
		}, []string{"stage"}),
	}

	register := func(name string, collector prometheus.Collector) (prometheus.Collector, error) {
		if err := reg.Register(collector); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, fmt.Errorf("register %s metric: %w", name, err)
			}
			return are.ExistingCollector, nil
		}
		return collector, nil
	}

	collector, err := register("attempts", m.attempts)
	if err != nil {
		return nil, err
	}
	m.attempts = collector.(*prometheus.CounterVec)

	collector, err = register("fallbacks", m.fallbacks)
	if err != nil {
		return nil, err
	}
	m.fallbacks = collector.(prometheus.Counter)

	collector, err = register("cache_hits", m.cacheHits)
	if err != nil {
		return nil, err
	}
	m.cacheHits = collector.(prometheus.Counter)

	collector, err = register("repair_retries", m.repairRetries)
	if err != nil {
		return nil, err
	}
	m.repairRetries = collector.(prometheus.Counter)

	collector, err = register("sanitizer_fallbacks", m.sanitizerFallbacks)
	if err != nil {
		return nil, err
	}
	m.sanitizerFallbacks = collector.(*prometheus.CounterVec)

	return m, nil
}

func (m *Metrics) RecordAttempt(provider, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.fallbacks.Inc()
}

func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) RecordRepairRetry() {
	if m == nil {
		return
	}
	m.repairRetries.Inc()
}

func (m *Metrics) RecordSanitizerFallback(stage string) {
	if m == nil {
		return
	}
	m.sanitizerFallbacks.WithLabelValues(stage).Inc()
}
