package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/campusbot/backend/internal/storage/models"
	"github.com/campusbot/backend/pkg/logger"
)

// Store is the persistence gateway over the bot database. It is injected
// explicitly rather than shared as package state; database/sql pools
// connections underneath so statements from different conversations do not
// serialize on a single handle.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite store initialized", zap.String("path", dbPath))

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT,
		user_id INTEGER,
		username TEXT,
		question TEXT,
		answer TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_logs_user ON logs(user_id);
	CREATE INDEX IF NOT EXISTS idx_logs_timestamp ON logs(timestamp);

	CREATE TABLE IF NOT EXISTS analysis (
		log_id INTEGER PRIMARY KEY REFERENCES logs(id),
		confidence REAL,
		sentiment REAL,
		template_flag INTEGER,
		word_count INTEGER,
		response_time REAL,
		reference_flag INTEGER,
		refusal_flag INTEGER,
		readability REAL,
		grammar_errors INTEGER,
		complex_words INTEGER,
		question_repeat INTEGER,
		user_feedback INTEGER,
		category TEXT
	);

	CREATE TABLE IF NOT EXISTS user_profiles (
		user_id INTEGER PRIMARY KEY,
		campus TEXT,
		education_level TEXT,
		education_type TEXT
	);

	CREATE TABLE IF NOT EXISTS heartbeat (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		ts TEXT
	);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// InsertLog appends one exchange and returns its autoincrement id.
func (s *Store) InsertLog(ctx context.Context, entry *models.LogEntry) (int64, error) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (timestamp, user_id, username, question, answer) VALUES (?, ?, ?, ?, ?)`,
		entry.Timestamp,
		entry.UserID,
		entry.Username,
		entry.Question,
		entry.Answer,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert log entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read log id: %w", err)
	}
	entry.ID = id

	logger.Debug("Log entry recorded",
		zap.Int64("log_id", id),
		zap.Int64("user_id", entry.UserID),
	)

	return id, nil
}

func (s *Store) GetLog(ctx context.Context, id int64) (*models.LogEntry, error) {
	var entry models.LogEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, timestamp, user_id, username, question, answer FROM logs WHERE id = ?`, id,
	).Scan(&entry.ID, &entry.Timestamp, &entry.UserID, &entry.Username, &entry.Question, &entry.Answer)
	if err != nil {
		return nil, fmt.Errorf("failed to get log entry: %w", err)
	}
	return &entry, nil
}

// UpsertAnalysis writes the analysis row for a log entry. Repeated writes for
// the same log id replace the previous row.
func (s *Store) UpsertAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	query := `
		INSERT INTO analysis (log_id, confidence, sentiment, template_flag, word_count,
			response_time, reference_flag, refusal_flag, readability,
			grammar_errors, complex_words, question_repeat, user_feedback, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(log_id) DO UPDATE SET
			confidence = excluded.confidence,
			sentiment = excluded.sentiment,
			template_flag = excluded.template_flag,
			word_count = excluded.word_count,
			response_time = excluded.response_time,
			reference_flag = excluded.reference_flag,
			refusal_flag = excluded.refusal_flag,
			readability = excluded.readability,
			grammar_errors = excluded.grammar_errors,
			complex_words = excluded.complex_words,
			question_repeat = excluded.question_repeat,
			user_feedback = excluded.user_feedback,
			category = excluded.category
	`

	var feedback sql.NullInt64
	if rec.UserFeedback != nil {
		feedback = sql.NullInt64{Int64: int64(*rec.UserFeedback), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		query,
		rec.LogID,
		rec.Confidence,
		rec.Sentiment,
		rec.TemplateFlag,
		rec.WordCount,
		rec.ResponseTime,
		rec.ReferenceFlag,
		rec.RefusalFlag,
		rec.Readability,
		rec.GrammarErrors,
		rec.ComplexWords,
		rec.QuestionRepeat,
		feedback,
		rec.Category,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis: %w", err)
	}

	logger.Debug("Analysis recorded",
		zap.Int64("log_id", rec.LogID),
		zap.Float64("confidence", rec.Confidence),
		zap.String("category", rec.Category),
	)

	return nil
}

func (s *Store) GetAnalysis(ctx context.Context, logID int64) (*models.AnalysisRecord, error) {
	var rec models.AnalysisRecord
	var feedback sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT log_id, confidence, sentiment, template_flag, word_count,
			response_time, reference_flag, refusal_flag, readability,
			grammar_errors, complex_words, question_repeat, user_feedback, category
		FROM analysis WHERE log_id = ?`, logID,
	).Scan(
		&rec.LogID,
		&rec.Confidence,
		&rec.Sentiment,
		&rec.TemplateFlag,
		&rec.WordCount,
		&rec.ResponseTime,
		&rec.ReferenceFlag,
		&rec.RefusalFlag,
		&rec.Readability,
		&rec.GrammarErrors,
		&rec.ComplexWords,
		&rec.QuestionRepeat,
		&feedback,
		&rec.Category,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	if feedback.Valid {
		v := int(feedback.Int64)
		rec.UserFeedback = &v
	}

	return &rec, nil
}

// UpdateFeedback sets the vote on the analysis row for logID and returns the
// number of rows touched, so a vote for an unknown log id is observable.
func (s *Store) UpdateFeedback(ctx context.Context, logID int64, vote int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE analysis SET user_feedback = ? WHERE log_id = ?`, vote, logID)
	if err != nil {
		return 0, fmt.Errorf("failed to update feedback: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows, nil
}

// GetProfile returns nil without an error when the user has no profile yet.
func (s *Store) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	var p models.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, campus, education_level, education_type FROM user_profiles WHERE user_id = ?`,
		userID,
	).Scan(&p.UserID, &p.Campus, &p.EducationLevel, &p.EducationType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p *models.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, campus, education_level, education_type)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			campus = excluded.campus,
			education_level = excluded.education_level,
			education_type = excluded.education_type
	`, p.UserID, p.Campus, p.EducationLevel, p.EducationType)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	logger.Info("Profile stored",
		zap.Int64("user_id", p.UserID),
		zap.String("campus", p.Campus),
	)

	return nil
}

// TouchHeartbeat refreshes the single-row liveness table the dashboard polls.
func (s *Store) TouchHeartbeat(ctx context.Context, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO heartbeat (id, ts) VALUES (1, ?)`,
		ts.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to touch heartbeat: %w", err)
	}
	return nil
}

// RecentExchanges joins logs with their analysis rows, newest first.
func (s *Store) RecentExchanges(ctx context.Context, limit int) ([]models.Exchange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT logs.id, logs.timestamp, logs.user_id, logs.username, logs.question, logs.answer,
			analysis.confidence, analysis.sentiment, analysis.template_flag, analysis.word_count,
			analysis.response_time, analysis.reference_flag, analysis.refusal_flag, analysis.readability,
			analysis.grammar_errors, analysis.complex_words, analysis.question_repeat,
			analysis.user_feedback, analysis.category
		FROM logs
		JOIN analysis ON logs.id = analysis.log_id
		ORDER BY logs.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []models.Exchange
	for rows.Next() {
		var ex models.Exchange
		var feedback sql.NullInt64

		err := rows.Scan(
			&ex.Log.ID, &ex.Log.Timestamp, &ex.Log.UserID, &ex.Log.Username,
			&ex.Log.Question, &ex.Log.Answer,
			&ex.Analysis.Confidence, &ex.Analysis.Sentiment, &ex.Analysis.TemplateFlag,
			&ex.Analysis.WordCount, &ex.Analysis.ResponseTime, &ex.Analysis.ReferenceFlag,
			&ex.Analysis.RefusalFlag, &ex.Analysis.Readability, &ex.Analysis.GrammarErrors,
			&ex.Analysis.ComplexWords, &ex.Analysis.QuestionRepeat, &feedback, &ex.Analysis.Category,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		ex.Analysis.LogID = ex.Log.ID
		if feedback.Valid {
			v := int(feedback.Int64)
			ex.Analysis.UserFeedback = &v
		}

		exchanges = append(exchanges, ex)
	}

	return exchanges, rows.Err()
}
