package regextract

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/coregx/regextract/cache"
	"github.com/coregx/regextract/kernel"
)

// Metrics holds Prometheus metrics for Extractor invocations. An
// ExtractParallel call counts as one invocation however many partitions it
// runs.
//
// Metrics:
//   - regextract_invocations_total{outcome} - invocations by "ok" or "error"
//   - regextract_errors_total{kind} - fatal errors by kind
//   - regextract_rows_total - rows processed by successful invocations
//   - regextract_null_rows_total - rows that produced a null cell
//   - regextract_absorbed_rows_total - rows whose pattern failure became ""
//   - regextract_cache_hits_total / regextract_cache_misses_total
//   - regextract_patterns_compiled_total - per-row patterns compiled
type Metrics struct {
	InvocationsTotal *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	RowsTotal        prometheus.Counter
	NullRowsTotal    prometheus.Counter
	AbsorbedTotal    prometheus.Counter
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CompiledTotal    prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg.
// A nil reg creates unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		InvocationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regextract_invocations_total",
				Help: "Total number of regexp_extract invocations",
			},
			[]string{"outcome"},
		),
		ErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regextract_errors_total",
				Help: "Total number of fatal regexp_extract errors",
			},
			[]string{"kind"},
		),
		RowsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "regextract_rows_total",
			Help: "Total number of rows processed",
		}),
		NullRowsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "regextract_null_rows_total",
			Help: "Total number of rows with a null subject, pattern or index",
		}),
		AbsorbedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "regextract_absorbed_rows_total",
			Help: "Total number of pattern or match failures turned into empty strings",
		}),
		CacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "regextract_cache_hits_total",
			Help: "Total number of pattern cache hits",
		}),
		CacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "regextract_cache_misses_total",
			Help: "Total number of pattern cache misses",
		}),
		CompiledTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "regextract_patterns_compiled_total",
			Help: "Total number of per-row patterns compiled",
		}),
	}
}

func (m *Metrics) observe(st kernel.Stats, cs cache.Stats, err error) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Add(float64(cs.Hits))
	m.CacheMissesTotal.Add(float64(cs.Misses))
	m.CompiledTotal.Add(float64(cs.Compiled))

	if err != nil {
		m.InvocationsTotal.WithLabelValues("error").Inc()
		m.ErrorsTotal.WithLabelValues(ErrorKind(err)).Inc()
		return
	}
	m.InvocationsTotal.WithLabelValues("ok").Inc()
	m.RowsTotal.Add(float64(st.Rows))
	m.NullRowsTotal.Add(float64(st.Nulls))
	m.AbsorbedTotal.Add(float64(st.Absorbed))
}

// ErrorKind classifies an invocation error for metrics and logs:
// "negative_index", "invalid_pattern", "match_failure", "shape", "type",
// "arguments", "canceled" or "other".
func ErrorKind(err error) string {
	var (
		ne *NegativeIndexError
		pe *InvalidPatternError
		me *MatchError
		se *ShapeError
		te *TypeError
		ae *ArgCountError
	)
	switch {
	case errors.As(err, &ne):
		return "negative_index"
	case errors.As(err, &pe):
		return "invalid_pattern"
	case errors.As(err, &me):
		return "match_failure"
	case errors.As(err, &se):
		return "shape"
	case errors.As(err, &te):
		return "type"
	case errors.As(err, &ae):
		return "arguments"
	case isCanceled(err):
		return "canceled"
	default:
		return "other"
	}
}
