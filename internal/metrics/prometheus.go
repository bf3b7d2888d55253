package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TurnDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campusbot_turn_duration_seconds",
			Help:    "Full message turn duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_turns_total",
			Help: "Total message turns processed",
		},
		[]string{"status"},
	)

	CompletionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campusbot_completion_latency_seconds",
			Help:    "Completion service latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30},
		},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campusbot_confidence_score",
			Help:    "Answer confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	ClassifierFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campusbot_classifier_fallbacks_total",
			Help: "Classifications that fell back to the catch-all category",
		},
	)

	AnalysisWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campusbot_analysis_write_failures_total",
			Help: "Analysis rows that could not be persisted",
		},
	)

	FeedbackVotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_feedback_votes_total",
			Help: "Feedback votes applied",
		},
		[]string{"decision"},
	)

	FeedbackIgnored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusbot_feedback_ignored_total",
			Help: "Feedback events ignored as no-ops",
		},
		[]string{"reason"},
	)

	OnboardingCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campusbot_onboarding_completions_total",
			Help: "Profiles completed through onboarding",
		},
	)

	HeartbeatErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "campusbot_heartbeat_errors_total",
			Help: "Failed heartbeat writes",
		},
	)
)

func Init() {
	prometheus.MustRegister(TurnDuration)
	prometheus.MustRegister(TurnsTotal)
	prometheus.MustRegister(CompletionLatency)
	prometheus.MustRegister(ConfidenceScore)
	prometheus.MustRegister(ClassifierFallbacks)
	prometheus.MustRegister(AnalysisWriteFailures)
	prometheus.MustRegister(FeedbackVotes)
	prometheus.MustRegister(FeedbackIgnored)
	prometheus.MustRegister(OnboardingCompletions)
	prometheus.MustRegister(HeartbeatErrors)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
