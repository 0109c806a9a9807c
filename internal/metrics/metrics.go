package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	ticksTotal       prometheus.Counter
	tickDuration     prometheus.Histogram
	symbolsProcessed prometheus.Counter
	symbolFailures   prometheus.Counter
	candidateAlerts  *prometheus.CounterVec
	alertsSent       *prometheus.CounterVec
	providerErrors   *prometheus.CounterVec
	commandsTotal    *prometheus.CounterVec
	watchlistSize    prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "debrief_ticks_total",
			Help: "Total number of scheduler ticks",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "debrief_tick_duration_seconds",
			Help:    "Tick duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		symbolsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "debrief_symbols_processed_total",
			Help: "Total number of per-symbol tasks run",
		}),
		symbolFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "debrief_symbol_failures_total",
			Help: "Total number of per-symbol tasks that failed",
		}),
		candidateAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debrief_candidate_alerts_total",
			Help: "Total number of candidate alerts produced by evaluators",
		}, []string{"kind"}),
		alertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debrief_alerts_sent_total",
			Help: "Total number of novel alerts dispatched",
		}, []string{"kind"}),
		providerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debrief_provider_errors_total",
			Help: "Total number of provider failures",
		}, []string{"provider"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "debrief_commands_total",
			Help: "Total number of inbound commands handled",
		}, []string{"verb"}),
		watchlistSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "debrief_watchlist_symbols",
			Help: "Number of symbols currently watched",
		}),
	}

	reg.MustRegister(
		r.ticksTotal, r.tickDuration, r.symbolsProcessed, r.symbolFailures,
		r.candidateAlerts, r.alertsSent, r.providerErrors, r.commandsTotal,
		r.watchlistSize,
	)

	return r
}

// ObserveTick records one completed tick.
func (r *Registry) ObserveTick(seconds float64) {
	r.ticksTotal.Inc()
	r.tickDuration.Observe(seconds)
}

// SymbolProcessed records one per-symbol task completion.
func (r *Registry) SymbolProcessed(failed bool) {
	r.symbolsProcessed.Inc()
	if failed {
		r.symbolFailures.Inc()
	}
}

// CandidateAlert records one evaluator candidate by rule kind.
func (r *Registry) CandidateAlert(kind string) {
	r.candidateAlerts.WithLabelValues(kind).Inc()
}

// AlertSent records one dispatched alert by rule kind.
func (r *Registry) AlertSent(kind string) {
	r.alertsSent.WithLabelValues(kind).Inc()
}

// ProviderError records one provider failure.
func (r *Registry) ProviderError(provider string) {
	r.providerErrors.WithLabelValues(provider).Inc()
}

// CommandHandled records one inbound command by verb.
func (r *Registry) CommandHandled(verb string) {
	r.commandsTotal.WithLabelValues(verb).Inc()
}

// SetWatchlistSize updates the watchlist gauge.
func (r *Registry) SetWatchlistSize(n int) {
	r.watchlistSize.Set(float64(n))
}
