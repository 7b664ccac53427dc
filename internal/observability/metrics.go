package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inference metrics
	inferenceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assist_gateway_inference_requests_total",
		Help: "Total number of inference invocations by capability and outcome",
	}, []string{"capability", "outcome"})

	inferenceLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assist_gateway_inference_latency_seconds",
		Help:    "Upstream inference latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
	}, []string{"capability"})

	// Gateway metrics
	gatewayResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assist_gateway_responses_total",
		Help: "Total number of gateway responses by endpoint and status",
	}, []string{"endpoint", "status"})

	// Recording metrics
	activeRecordings = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "assist_gateway_active_recordings",
		Help: "Number of recording sessions currently in the Recording state",
	})

	recordingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "assist_gateway_recording_duration_seconds",
		Help:    "Duration of recording cycles in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	recognitionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assist_gateway_recognition_events_total",
		Help: "Recognition events by kind (interim, final, dropped)",
	}, []string{"kind"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assist_gateway_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "assist_gateway_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assist_gateway_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "assist_gateway_audio_bytes_total",
		Help: "Total audio bytes forwarded to the speech capability",
	}, []string{"direction"})
)

// RecordInference records one inference invocation
func RecordInference(capability, outcome string, latency time.Duration) {
	inferenceRequests.WithLabelValues(capability, outcome).Inc()
	if latency > 0 {
		inferenceLatency.WithLabelValues(capability).Observe(latency.Seconds())
	}
}

// RecordGatewayResponse records the status returned by a gateway endpoint
func RecordGatewayResponse(endpoint string, status int) {
	gatewayResponses.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// RecordRecognitionEvent records an interim, final or dropped recognition event
func RecordRecognitionEvent(kind string) {
	recognitionEvents.WithLabelValues(kind).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}

// RecordingMetrics tracks recording cycles for a single session
type RecordingMetrics struct {
	mu        sync.Mutex
	startTime time.Time
}

// NewRecordingMetrics creates a new metrics tracker for a recording session
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{}
}

// RecordStart records the start of a recording cycle
func (m *RecordingMetrics) RecordStart() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startTime = time.Now()
	activeRecordings.Inc()
}

// RecordStop records the end of a recording cycle
func (m *RecordingMetrics) RecordStop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startTime.IsZero() {
		return
	}
	activeRecordings.Dec()
	recordingDuration.Observe(time.Since(m.startTime).Seconds())
	m.startTime = time.Time{}
}
