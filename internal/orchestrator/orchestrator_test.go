package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campusbot/backend/internal/analysis"
	"github.com/campusbot/backend/internal/llm"
	"github.com/campusbot/backend/internal/storage/models"
)

type fakeStore struct {
	logs       []*models.LogEntry
	analyses   []*models.AnalysisRecord
	insertErr  error
	upsertErr  error
	insertSeen int
}

func (f *fakeStore) InsertLog(ctx context.Context, entry *models.LogEntry) (int64, error) {
	f.insertSeen++
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.logs = append(f.logs, entry)
	return int64(len(f.logs)), nil
}

func (f *fakeStore) UpsertAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.analyses = append(f.analyses, rec)
	return nil
}

type fakeCompleter struct {
	content  string
	logProbs []llm.TokenLogProb
	err      error
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.content, LogProbs: f.logProbs}, nil
}

type fakeCategorizer struct{ label string }

func (f *fakeCategorizer) Classify(ctx context.Context, question string) string { return f.label }

type fakeGate struct {
	ready bool
	err   error
}

func (f *fakeGate) Ready(ctx context.Context, userID int64) (bool, error) {
	return f.ready, f.err
}

func newTestOrchestrator(store *fakeStore, completer *fakeCompleter, gate *fakeGate) *Orchestrator {
	pipeline := analysis.NewPipeline(analysis.DefaultPatterns(), nil, nil)
	return New(store, completer, pipeline, &fakeCategorizer{label: "Учеба"}, gate, "отвечай кратко", 4096)
}

func TestHandleMessageGateBlocks(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	o := newTestOrchestrator(store, &fakeCompleter{content: "ответ"}, &fakeGate{ready: false})

	_, err := o.HandleMessage(context.Background(), 1, "ivan", "вопрос")
	if !errors.Is(err, ErrOnboardingRequired) {
		t.Fatalf("err = %v, want ErrOnboardingRequired", err)
	}
	if store.insertSeen != 0 {
		t.Fatalf("no log row should be written for gated users")
	}
}

func TestHandleMessagePersistsLogThenAnalysis(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	completer := &fakeCompleter{
		content: "Сессия **начинается** в январе",
		logProbs: []llm.TokenLogProb{
			{Token: "Сессия", LogProb: 0.9},
			{Token: "январе", LogProb: 0.7},
		},
	}
	o := newTestOrchestrator(store, completer, &fakeGate{ready: true})

	turn, err := o.HandleMessage(context.Background(), 42, "ivan", "Когда сессия?")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(store.logs) != 1 {
		t.Fatalf("want 1 log row, got %d", len(store.logs))
	}
	entry := store.logs[0]
	if entry.UserID != 42 || entry.Username != "ivan" || entry.Question != "Когда сессия?" {
		t.Fatalf("log row fields wrong: %+v", entry)
	}
	if strings.Contains(entry.Answer, "**") {
		t.Fatalf("answer stored unnormalized: %q", entry.Answer)
	}

	if len(store.analyses) != 1 {
		t.Fatalf("want 1 analysis row, got %d", len(store.analyses))
	}
	rec := store.analyses[0]
	if rec.LogID != turn.LogID {
		t.Fatalf("analysis keyed to %d, log id is %d", rec.LogID, turn.LogID)
	}
	if rec.Category != "Учеба" {
		t.Fatalf("category got %q", rec.Category)
	}
	// Evidence mean of 0.9 and 0.7 is 0.8.
	if rec.Confidence != 0.8 {
		t.Fatalf("confidence got %v want 0.8", rec.Confidence)
	}
	if rec.UserFeedback != nil {
		t.Fatalf("feedback must start unset")
	}
}

func TestHandleMessageChunkPayloads(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	o := newTestOrchestrator(store, &fakeCompleter{content: "ответ готов"}, &fakeGate{ready: true})

	turn, err := o.HandleMessage(context.Background(), 1, "ivan", "вопрос")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(turn.Chunks) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(turn.Chunks))
	}

	c := turn.Chunks[0]
	if c.Text != "ответ готов" {
		t.Fatalf("chunk text got %q", c.Text)
	}
	wantUp := "confirm_yes_1"
	wantDown := "confirm_no_1"
	if c.UpvotePayload != wantUp || c.DownvotePayload != wantDown {
		t.Fatalf("payloads got (%q, %q) want (%q, %q)",
			c.UpvotePayload, c.DownvotePayload, wantUp, wantDown)
	}
}

func TestHandleMessageCompletionFailureWritesNothing(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	o := newTestOrchestrator(store, &fakeCompleter{err: errors.New("upstream down")}, &fakeGate{ready: true})

	_, err := o.HandleMessage(context.Background(), 1, "ivan", "вопрос")
	if err == nil {
		t.Fatal("expected error")
	}
	if store.insertSeen != 0 || len(store.analyses) != 0 {
		t.Fatalf("no rows should be written when the completion fails")
	}
}

func TestHandleMessageLogWriteRetried(t *testing.T) {
	t.Parallel()

	store := &fakeStore{insertErr: errors.New("disk full")}
	o := newTestOrchestrator(store, &fakeCompleter{content: "ответ"}, &fakeGate{ready: true})

	_, err := o.HandleMessage(context.Background(), 1, "ivan", "вопрос")
	if err == nil {
		t.Fatal("expected error when log write keeps failing")
	}
	if store.insertSeen < 2 {
		t.Fatalf("log write attempted %d times, want retries", store.insertSeen)
	}
	if len(store.analyses) != 0 {
		t.Fatalf("analysis must not be written without a log id")
	}
}

func TestHandleMessageAnalysisFailureStillReturnsTurn(t *testing.T) {
	t.Parallel()

	store := &fakeStore{upsertErr: errors.New("locked")}
	o := newTestOrchestrator(store, &fakeCompleter{content: "ответ"}, &fakeGate{ready: true})

	turn, err := o.HandleMessage(context.Background(), 1, "ivan", "вопрос")
	if err != nil {
		t.Fatalf("analysis write failure must not fail the turn: %v", err)
	}
	if turn.LogID != 1 || len(turn.Chunks) != 1 {
		t.Fatalf("turn incomplete: %+v", turn)
	}
}
