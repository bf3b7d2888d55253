package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/campusbot/backend/internal/storage/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "bot_logs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return store
}

func insertLogAndAnalysis(t *testing.T, store *Store, question string) int64 {
	t.Helper()
	ctx := context.Background()

	logID, err := store.InsertLog(ctx, &models.LogEntry{
		UserID:   42,
		Username: "student",
		Question: question,
		Answer:   "ответ",
	})
	if err != nil {
		t.Fatalf("insert log: %v", err)
	}

	err = store.UpsertAnalysis(ctx, &models.AnalysisRecord{
		LogID:      logID,
		Confidence: 0.9,
		Category:   "Учеба",
	})
	if err != nil {
		t.Fatalf("upsert analysis: %v", err)
	}
	return logID
}

func TestOneAnalysisPerLogEntry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		ids = append(ids, insertLogAndAnalysis(t, store, "вопрос"))
	}

	// Re-upserting must replace, never duplicate.
	err := store.UpsertAnalysis(ctx, &models.AnalysisRecord{
		LogID:      ids[0],
		Confidence: 0.5,
		Category:   "Другое",
	})
	if err != nil {
		t.Fatalf("re-upsert analysis: %v", err)
	}

	exchanges, err := store.RecentExchanges(ctx, 10)
	if err != nil {
		t.Fatalf("recent exchanges: %v", err)
	}
	if len(exchanges) != 3 {
		t.Fatalf("exchange count got %d want 3", len(exchanges))
	}

	seen := make(map[int64]bool)
	for _, ex := range exchanges {
		if seen[ex.Analysis.LogID] {
			t.Fatalf("duplicate analysis for log_id %d", ex.Analysis.LogID)
		}
		seen[ex.Analysis.LogID] = true
	}

	rec, err := store.GetAnalysis(ctx, ids[0])
	if err != nil {
		t.Fatalf("get analysis: %v", err)
	}
	if rec.Confidence != 0.5 || rec.Category != "Другое" {
		t.Fatalf("upsert did not replace: %+v", rec)
	}
}

func TestFeedbackOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	logID := insertLogAndAnalysis(t, store, "вопрос")

	rec, err := store.GetAnalysis(ctx, logID)
	if err != nil {
		t.Fatalf("get analysis: %v", err)
	}
	if rec.UserFeedback != nil {
		t.Fatalf("user_feedback should start null, got %v", *rec.UserFeedback)
	}

	if _, err := store.UpdateFeedback(ctx, logID, 1); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	rows, err := store.UpdateFeedback(ctx, logID, -1)
	if err != nil {
		t.Fatalf("second vote: %v", err)
	}
	if rows != 1 {
		t.Fatalf("rows affected got %d want 1", rows)
	}

	rec, err = store.GetAnalysis(ctx, logID)
	if err != nil {
		t.Fatalf("get analysis: %v", err)
	}
	if rec.UserFeedback == nil || *rec.UserFeedback != -1 {
		t.Fatalf("user_feedback got %v want -1 (most recent vote wins)", rec.UserFeedback)
	}
}

func TestFeedbackUnknownLogID(t *testing.T) {
	store := newTestStore(t)

	rows, err := store.UpdateFeedback(context.Background(), 9999, 1)
	if err != nil {
		t.Fatalf("update feedback: %v", err)
	}
	if rows != 0 {
		t.Fatalf("rows affected got %d want 0 for unknown log id", rows)
	}
}

func TestProfileUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.GetProfile(ctx, 7)
	if err != nil {
		t.Fatalf("get missing profile: %v", err)
	}
	if p != nil {
		t.Fatalf("missing profile should be nil, got %+v", p)
	}

	profile := &models.Profile{
		UserID:         7,
		Campus:         "Пермь",
		EducationLevel: "Бакалавр",
		EducationType:  "Очный",
	}
	if err := store.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("upsert profile: %v", err)
	}

	profile.Campus = "Москва"
	if err := store.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("re-upsert profile: %v", err)
	}

	p, err = store.GetProfile(ctx, 7)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.Campus != "Москва" || p.EducationLevel != "Бакалавр" {
		t.Fatalf("profile after re-upsert: %+v", p)
	}
}

func TestLogTimestampISO8601(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entry := &models.LogEntry{UserID: 1, Question: "q", Answer: "a"}
	logID, err := store.InsertLog(ctx, entry)
	if err != nil {
		t.Fatalf("insert log: %v", err)
	}

	got, err := store.GetLog(ctx, logID)
	if err != nil {
		t.Fatalf("get log: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, got.Timestamp); err != nil {
		t.Fatalf("timestamp %q is not ISO-8601: %v", got.Timestamp, err)
	}
}

func TestHeartbeatSingleRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	if err := store.TouchHeartbeat(ctx, first); err != nil {
		t.Fatalf("first heartbeat: %v", err)
	}
	if err := store.TouchHeartbeat(ctx, first.Add(time.Minute)); err != nil {
		t.Fatalf("second heartbeat: %v", err)
	}

	var count int
	var ts string
	if err := store.db.QueryRow(`SELECT COUNT(*), MAX(ts) FROM heartbeat`).Scan(&count, &ts); err != nil {
		t.Fatalf("query heartbeat: %v", err)
	}
	if count != 1 {
		t.Fatalf("heartbeat rows got %d want 1", count)
	}
	if ts != "2025-01-01T10:01:00Z" {
		t.Fatalf("heartbeat ts got %q", ts)
	}
}
