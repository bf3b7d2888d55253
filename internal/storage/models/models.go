package models

// LogEntry is one persisted question/answer exchange. Rows are append-only;
// ID is the correlation key for everything downstream.
type LogEntry struct {
	ID        int64
	Timestamp string
	UserID    int64
	Username  string
	Question  string
	Answer    string
}

// AnalysisRecord holds the derived quality metrics for one log entry.
// UserFeedback is nil until a vote arrives and is overwritten on later votes.
type AnalysisRecord struct {
	LogID          int64
	Confidence     float64
	Sentiment      float64
	TemplateFlag   int
	WordCount      int
	ResponseTime   float64
	ReferenceFlag  int
	RefusalFlag    int
	Readability    float64
	GrammarErrors  int
	ComplexWords   int
	QuestionRepeat int
	UserFeedback   *int
	Category       string
}

// Profile stores the demographic attributes collected during onboarding.
type Profile struct {
	UserID         int64
	Campus         string
	EducationLevel string
	EducationType  string
}

// Exchange is a log row joined with its analysis, as the dashboard reads it.
type Exchange struct {
	Log      LogEntry
	Analysis AnalysisRecord
}
