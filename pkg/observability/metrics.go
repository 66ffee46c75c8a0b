package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askai_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askai_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Retrieval metrics
	retrievalResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askai_retrieval_results_total",
			Help: "Total number of results returned per knowledge source",
		},
		[]string{"source"},
	)

	retrievalFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askai_retrieval_failures_total",
			Help: "Total number of failed or timed out searches per knowledge source",
		},
		[]string{"source"},
	)

	retrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askai_retrieval_duration_seconds",
			Help:    "Search duration in seconds per knowledge source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Completion metrics
	completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askai_completions_total",
			Help: "Total number of completion calls",
		},
		[]string{"provider", "status"},
	)

	completionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askai_completion_duration_seconds",
			Help:    "Completion call duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
		},
		[]string{"provider"},
	)

	completionTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askai_completion_tokens_total",
			Help: "Total tokens consumed by completion calls",
		},
		[]string{"provider", "kind"},
	)

	completionCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askai_completion_cost_usd_total",
			Help: "Estimated USD cost of completion calls",
		},
		[]string{"provider", "model"},
	)

	// Chat metrics
	chatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askai_chat_turns_total",
			Help: "Total number of chat turns by outcome branch",
		},
		[]string{"branch"},
	)

	suggestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askai_suggestions_total",
			Help: "Total number of suggestions registered and applied",
		},
		[]string{"event"},
	)

	suggestionsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "askai_suggestions_stored",
			Help: "Number of suggestions held by the store",
		},
	)

	initOnce sync.Once
)

// Chat turn branches
const (
	BranchTemplates  = "templates"
	BranchCompletion = "completion"
	BranchGreeting   = "greeting"
	BranchError      = "error"
)

// InitMetrics initializes Prometheus metrics
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			retrievalResultsTotal,
			retrievalFailuresTotal,
			retrievalDuration,
			completionsTotal,
			completionDuration,
			completionTokens,
			completionCost,
			chatTurnsTotal,
			suggestionsTotal,
			suggestionsStored,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSearch records one knowledge-source search
func RecordSearch(source string, results int, failed bool, duration time.Duration) {
	retrievalResultsTotal.WithLabelValues(source).Add(float64(results))
	retrievalDuration.WithLabelValues(source).Observe(duration.Seconds())
	if failed {
		retrievalFailuresTotal.WithLabelValues(source).Inc()
	}
}

// RecordCompletion records one completion call
func RecordCompletion(provider string, err error, promptTokens, outputTokens int, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	completionsTotal.WithLabelValues(provider, status).Inc()
	completionDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if promptTokens > 0 {
		completionTokens.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if outputTokens > 0 {
		completionTokens.WithLabelValues(provider, "completion").Add(float64(outputTokens))
	}
}

// RecordCompletionCost adds the estimated cost of one completion call
func RecordCompletionCost(provider, model string, usd float64) {
	if usd > 0 {
		completionCost.WithLabelValues(provider, model).Add(usd)
	}
}

// RecordChatTurn records which branch a chat turn took
func RecordChatTurn(branch string) {
	chatTurnsTotal.WithLabelValues(branch).Inc()
}

// RecordSuggestion records a suggestion lifecycle event (registered, applied)
func RecordSuggestion(event string) {
	suggestionsTotal.WithLabelValues(event).Inc()
}

// SetSuggestionsStored sets the stored suggestions gauge
func SetSuggestionsStored(count int) {
	suggestionsStored.Set(float64(count))
}
