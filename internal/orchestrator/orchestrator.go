package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusbot/backend/internal/analysis"
	"github.com/campusbot/backend/internal/llm"
	"github.com/campusbot/backend/internal/metrics"
	"github.com/campusbot/backend/internal/storage/models"
	"github.com/campusbot/backend/pkg/logger"
	"github.com/campusbot/backend/pkg/retry"
)

// ErrOnboardingRequired is returned for users who have not completed profile
// collection; the transport should start the onboarding flow instead.
var ErrOnboardingRequired = errors.New("onboarding required")

type Store interface {
	InsertLog(ctx context.Context, entry *models.LogEntry) (int64, error)
	UpsertAnalysis(ctx context.Context, rec *models.AnalysisRecord) error
}

type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type Categorizer interface {
	Classify(ctx context.Context, question string) string
}

type Gate interface {
	Ready(ctx context.Context, userID int64) (bool, error)
}

// Turn is the outcome of one free-form message: the durable log id plus the
// answer split into transport-sized chunks, each carrying vote controls.
type Turn struct {
	LogID  int64
	Chunks []Chunk
}

type Chunk struct {
	Text            string
	UpvotePayload   string
	DownvotePayload string
}

type Orchestrator struct {
	store        Store
	completer    Completer
	pipeline     *analysis.Pipeline
	categorizer  Categorizer
	gate         Gate
	systemPrompt string
	chunkSize    int
	logRetry     retry.Config
}

func New(store Store, completer Completer, pipeline *analysis.Pipeline, categorizer Categorizer, gate Gate, systemPrompt string, chunkSize int) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = 4096
	}

	return &Orchestrator{
		store:        store,
		completer:    completer,
		pipeline:     pipeline,
		categorizer:  categorizer,
		gate:         gate,
		systemPrompt: systemPrompt,
		chunkSize:    chunkSize,
		logRetry: retry.Config{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			Logger:       logger.GetLogger(),
		},
	}
}

// HandleMessage runs one full turn: gate, completion, log row first, then
// analysis and classification, then the analysis row. The log write is
// retried because a durable id must exist for feedback correlation; the
// analysis write is best-effort but reported.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID int64, username, question string) (*Turn, error) {
	ready, err := o.gate.Ready(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check onboarding state: %w", err)
	}
	if !ready {
		return nil, ErrOnboardingRequired
	}

	turnID := uuid.New().String()
	turnStart := time.Now()

	logger.Info("Processing message",
		zap.String("turn_id", turnID),
		zap.Int64("user_id", userID),
	)

	start := time.Now()
	resp, err := o.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: o.systemPrompt,
		UserMessage:  question,
	})
	elapsed := time.Since(start)
	metrics.CompletionLatency.Observe(elapsed.Seconds())

	if err != nil {
		metrics.TurnsTotal.WithLabelValues("completion_failed").Inc()
		return nil, fmt.Errorf("completion service failed: %w", err)
	}

	answer := NormalizeAnswer(resp.Content)

	entry := &models.LogEntry{
		UserID:   userID,
		Username: username,
		Question: question,
		Answer:   answer,
	}

	logID, err := retry.DoWithResult(ctx, o.logRetry, func() (int64, error) {
		return o.store.InsertLog(ctx, entry)
	})
	if err != nil {
		metrics.TurnsTotal.WithLabelValues("log_write_failed").Inc()
		return nil, fmt.Errorf("failed to persist log entry: %w", err)
	}

	evidence := make([]analysis.Evidence, 0, len(resp.LogProbs))
	for _, lp := range resp.LogProbs {
		evidence = append(evidence, analysis.PairEvidence(lp.Token, lp.LogProb))
	}

	m := o.pipeline.Analyze(ctx, question, answer, elapsed, evidence)
	m.Category = o.categorizer.Classify(ctx, question)

	metrics.ConfidenceScore.Observe(m.Confidence)

	rec := &models.AnalysisRecord{
		LogID:          logID,
		Confidence:     m.Confidence,
		Sentiment:      m.Sentiment,
		TemplateFlag:   m.TemplateFlag,
		WordCount:      m.WordCount,
		ResponseTime:   m.ResponseTime,
		ReferenceFlag:  m.ReferenceFlag,
		RefusalFlag:    m.RefusalFlag,
		Readability:    m.Readability,
		GrammarErrors:  m.GrammarErrors,
		ComplexWords:   m.ComplexWords,
		QuestionRepeat: m.QuestionRepeat,
		Category:       m.Category,
	}

	if err := o.store.UpsertAnalysis(ctx, rec); err != nil {
		// Answer and log row are already durable; report and move on.
		logger.Error("Failed to persist analysis row",
			zap.Int64("log_id", logID),
			zap.Error(err),
		)
		metrics.AnalysisWriteFailures.Inc()
	}

	turn := &Turn{LogID: logID}
	for _, text := range SplitChunks(answer, o.chunkSize) {
		turn.Chunks = append(turn.Chunks, Chunk{
			Text:            text,
			UpvotePayload:   fmt.Sprintf("confirm_yes_%d", logID),
			DownvotePayload: fmt.Sprintf("confirm_no_%d", logID),
		})
	}

	metrics.TurnsTotal.WithLabelValues("ok").Inc()
	metrics.TurnDuration.Observe(time.Since(turnStart).Seconds())

	logger.Info("Turn completed",
		zap.String("turn_id", turnID),
		zap.Int64("log_id", logID),
		zap.Float64("response_time", m.ResponseTime),
		zap.String("category", m.Category),
	)

	return turn, nil
}
