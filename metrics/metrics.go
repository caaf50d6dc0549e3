package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTokenized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_requests_tokenized_total",
			Help: "Total number of outgoing requests that had the CSRF header attached",
		},
	)

	FormsAugmented = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_forms_augmented_total",
			Help: "Total number of forms that received a hidden CSRF field",
		},
	)

	DocumentsWithoutToken = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_documents_without_token_total",
			Help: "Total number of documents initialised without a CSRF token",
		},
	)

	CSRFValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_csrf_validations_total",
			Help: "Total number of CSRF validations by result",
		},
		[]string{"result"},
	)

	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_tokens_issued_total",
			Help: "Total number of CSRF tokens issued to sessions",
		},
		[]string{"backend"},
	)

	TokenStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_token_store_errors_total",
			Help: "Total number of token store errors",
		},
		[]string{"backend", "op"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "code"},
	)

	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_panics_recovered_total",
			Help: "Total number of panics recovered, by source (http handler or background goroutine)",
		},
		[]string{"source"},
	)
)

// Panic sources
const (
	PanicSourceHTTP      = "http"
	PanicSourceGoroutine = "goroutine"
)

// RecordPanic records a recovered panic from source.
func RecordPanic(source string) {
	PanicsRecovered.WithLabelValues(source).Inc()
}

// RecordValidation records the outcome of a CSRF check ("passed", "missing", "mismatch", ...).
func RecordValidation(result string) {
	CSRFValidations.WithLabelValues(result).Inc()
}

// RecordStoreError records a failed token store operation.
func RecordStoreError(backend, op string) {
	TokenStoreErrors.WithLabelValues(backend, op).Inc()
}
