package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the CrowdSynth coordination core.
//
// Naming convention: namespace_subsystem_name
// - namespace: crowdsynth (application-level grouping)
// - subsystem: websocket, room, tick, arbitrator, audio_session, drop,
//   circuit_breaker, rate_limit (feature-level grouping)
// - name: specific metric (connections_active, events_total, etc.)

var (
	// ActiveWebSocketConnections tracks the current number of active duplex connections.
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crowdsynth",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of active rooms.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crowdsynth",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomParticipants tracks the number of participants in each room.
	RoomParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "crowdsynth",
		Subsystem: "room",
		Name:      "participants_count",
		Help:      "Number of participants in each room",
	}, []string{"room_id"})

	// WebsocketEvents tracks the total number of inbound/outbound messages processed.
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crowdsynth",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// MessageProcessingDuration tracks the time spent processing inbound messages.
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crowdsynth",
		Subsystem: "websocket",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing WebSocket messages",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"event_type"})

	// TickDuration tracks the wall-clock time of one full tick iteration.
	TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crowdsynth",
		Subsystem: "tick",
		Name:      "duration_seconds",
		Help:      "Time spent running one tick iteration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"room_id"})

	// TickErrors counts tick iterations whose arbitrator call failed.
	TickErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crowdsynth",
		Subsystem: "tick",
		Name:      "errors_total",
		Help:      "Total tick iterations that ended in an arbitrator error",
	}, []string{"room_id"})

	// ArbitrationsTotal tracks arbitrator calls by outcome.
	ArbitrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crowdsynth",
		Subsystem: "arbitrator",
		Name:      "requests_total",
		Help:      "Total arbitrator calls by outcome",
	}, []string{"outcome"})

	// AudioSessionsActive tracks the number of active upstream audio sessions.
	AudioSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crowdsynth",
		Subsystem: "audio_session",
		Name:      "sessions_active",
		Help:      "Current number of active upstream audio-generation sessions",
	})

	// AudioChunksRelayed tracks audio frames relayed from upstream to clients.
	AudioChunksRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crowdsynth",
		Subsystem: "audio_session",
		Name:      "chunks_relayed_total",
		Help:      "Total audio chunks relayed from the upstream session",
	}, []string{"room_id"})

	// DropEvents tracks drop-coordinator outcomes.
	DropEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crowdsynth",
		Subsystem: "drop",
		Name:      "events_total",
		Help:      "Total drop-vote outcomes",
	}, []string{"outcome"})

	// CircuitBreakerState tracks the current state of each external-collaborator breaker.
	// 0: Closed (Healthy), 1: Open (Failure), 2: Half-Open (Recovering)
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "crowdsynth",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of the circuit breaker (0: Closed, 1: Open, 2: Half-Open)",
	}, []string{"service"})

	// CircuitBreakerFailures tracks requests rejected by an open circuit breaker.
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crowdsynth",
		Subsystem: "circuit_breaker",
		Name:      "failures_total",
		Help:      "Total requests rejected by the circuit breaker",
	}, []string{"service"})

	// RateLimitExceeded tracks requests throttled by the per-connection limiter.
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crowdsynth",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"endpoint", "reason"})

	// RateLimitRequests tracks requests checked against the rate limiter.
	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crowdsynth",
		Subsystem: "rate_limit",
		Name:      "requests_total",
		Help:      "Total number of requests checked against the rate limiter",
	}, []string{"endpoint"})
)

func IncConnection() {
	ActiveWebSocketConnections.Inc()
}

func DecConnection() {
	ActiveWebSocketConnections.Dec()
}
