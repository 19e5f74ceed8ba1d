package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InterviewsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_sessions_active",
		Help: "Currently running interview sessions",
	})

	InterviewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_sessions_total",
		Help: "Finished interview sessions by terminal state",
	}, []string{"state"})

	StateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_state_transitions_total",
		Help: "Interview state machine transitions",
	}, []string{"from", "to"})

	Turns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_turns_total",
		Help: "Turns by outcome (answered, empty, skipped, failed)",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "interview_stage_duration_seconds",
		Help:    "Per-stage latency",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 3.0, 5.0, 10.0, 20.0, 60.0},
	}, []string{"stage"})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_errors_total",
		Help: "Error counts by stage and kind",
	}, []string{"stage", "kind"})

	RecognitionFinals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recognition_finals_total",
		Help: "Final transcripts by source (message, fallback, auto_finalize, timeout, error)",
	}, []string{"source"})

	RecognitionFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recognition_frames_sent_total",
		Help: "Audio frames submitted for recognition",
	})

	RecognitionReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recognition_reconnects_total",
		Help: "Reconnects triggered by failed frame submission",
	})

	InboundDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recognition_inbound_dropped_total",
		Help: "Inbound recognition messages dropped because the session queue was full",
	})

	SynthesisSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synthesis_segments_total",
		Help: "Text segments sent for synthesis",
	})

	PlaybackBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playback_bytes_total",
		Help: "Audio bytes written to the output device",
	})

	ComponentHealthy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_component_healthy",
		Help: "1 when the component passed its last check",
	}, []string{"component"})

	RecoveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "health_recovery_attempts_total",
		Help: "Recovery attempts by component and result",
	}, []string{"component", "result"})

	GenerationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "generation_attempts_total",
		Help: "Dialogue generation attempts by result",
	}, []string{"result"})
)
