package analysis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPipeline(grammar GrammarChecker) *Pipeline {
	return NewPipeline(DefaultPatterns(), grammar, []string{"ru-RU", "en-US"})
}

func TestHedgeConfidence(t *testing.T) {
	t.Parallel()

	// 10 words, 2 hedge hits: max(0, 1-(2/10)*5) = 0.
	text := "Возможно это так и может быть но я не уверен"
	got := hedgeConfidence(text)
	if got != 0.0 {
		t.Fatalf("hedgeConfidence got %v want 0.0", got)
	}

	// No hedges at all.
	got = hedgeConfidence("Сессия начинается пятнадцатого января")
	if got != 1.0 {
		t.Fatalf("hedgeConfidence got %v want 1.0", got)
	}

	// Substring matching, not token-exact: "может" inside "можете" counts.
	got = hedgeConfidence("вы можете уточнить")
	if got >= 1.0 {
		t.Fatalf("hedgeConfidence got %v, substring hit should lower score", got)
	}
}

func TestConfidenceRange(t *testing.T) {
	t.Parallel()

	p := testPipeline(nil)

	inputs := []struct {
		text     string
		evidence []Evidence
	}{
		{"", nil},
		{"возможно возможно возможно", nil},
		{"obvious certain answer", nil},
		{"any", []Evidence{RecordEvidence(-0.1), RecordEvidence(-0.3)}},
		{"any", []Evidence{ScalarEvidence(3.5)}},
		{"any", []Evidence{ScalarEvidence(0.42)}},
	}

	for _, in := range inputs {
		got := p.confidence(in.text, in.evidence)
		if got < 0 || got > 1 {
			t.Fatalf("confidence(%q) = %v, out of [0,1]", in.text, got)
		}
	}
}

func TestConfidenceFromEvidence(t *testing.T) {
	t.Parallel()

	p := testPipeline(nil)

	// Negative logprob mean is clamped to 0 before storage.
	got := p.confidence("any", []Evidence{RecordEvidence(-0.1), RecordEvidence(-0.3)})
	if got != 0.0 {
		t.Fatalf("confidence got %v want 0.0", got)
	}

	got = p.confidence("any", []Evidence{ScalarEvidence(0.8), PairEvidence("ток", 0.6)})
	if got != 0.7 {
		t.Fatalf("confidence got %v want 0.7", got)
	}

	// Empty normalized evidence falls back to the heuristic.
	got = p.confidence("уверенный ответ без хеджей", nil)
	if got != 1.0 {
		t.Fatalf("confidence fallback got %v want 1.0", got)
	}
}

func TestRefusalFlag(t *testing.T) {
	t.Parallel()

	ps := DefaultPatterns()

	if !ps.MatchRefusal("Извините, но я не могу помочь") {
		t.Fatalf("refusal text not matched")
	}
	if ps.MatchRefusal("Вот ответ на ваш вопрос") {
		t.Fatalf("plain answer matched as refusal")
	}
	if !ps.MatchRefusal("I'm sorry, but I cannot do that") {
		t.Fatalf("english refusal not matched")
	}
}

func TestTemplateFlag(t *testing.T) {
	t.Parallel()

	ps := DefaultPatterns()

	if !ps.MatchTemplate("As an AI language model I cannot feel") {
		t.Fatalf("template text not matched")
	}
	if !ps.MatchTemplate("Как модель, я не имею мнения") {
		t.Fatalf("russian template text not matched")
	}
	if ps.MatchTemplate("Расписание доступно в личном кабинете") {
		t.Fatalf("plain answer matched as template")
	}
}

func TestReferenceFlag(t *testing.T) {
	t.Parallel()

	ps := DefaultPatterns()

	if !ps.MatchReference("приходите 15 января") {
		t.Fatalf("date mention not matched")
	}
	if ps.MatchReference("приходите завтра") {
		t.Fatalf("text without date matched")
	}
}

func TestQuestionRepeat(t *testing.T) {
	t.Parallel()

	q := "Когда начинается сессия?"
	if !questionRepeat(q, "когда начинается сессия? Сессия начинается в январе") {
		t.Fatalf("echoed answer not flagged")
	}
	if questionRepeat(q, "Сессия начинается в январе") {
		t.Fatalf("direct answer flagged as repeat")
	}
}

type fakeGrammar struct {
	counts map[string]int
	err    error
}

func (f *fakeGrammar) Check(ctx context.Context, text, language string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[language], nil
}

func TestAnalyzeFullSet(t *testing.T) {
	t.Parallel()

	grammar := &fakeGrammar{counts: map[string]int{"ru-RU": 2, "en-US": 1}}
	p := testPipeline(grammar)

	m := p.Analyze(context.Background(),
		"Когда начинается сессия?",
		"  Сессия начинается 15 января. Приходите вовремя.  ",
		1500*time.Millisecond,
		nil,
	)

	if m.WordCount != 6 {
		t.Fatalf("WordCount got %d want 6", m.WordCount)
	}
	if m.ResponseTime != 1.5 {
		t.Fatalf("ResponseTime got %v want 1.5", m.ResponseTime)
	}
	if m.ReferenceFlag != 1 {
		t.Fatalf("ReferenceFlag got %d want 1", m.ReferenceFlag)
	}
	if m.RefusalFlag != 0 || m.TemplateFlag != 0 {
		t.Fatalf("flags got refusal=%d template=%d want 0/0", m.RefusalFlag, m.TemplateFlag)
	}
	if m.GrammarErrors != 3 {
		t.Fatalf("GrammarErrors got %d want 3", m.GrammarErrors)
	}
	if m.QuestionRepeat != 0 {
		t.Fatalf("QuestionRepeat got %d want 0", m.QuestionRepeat)
	}
	if m.UserFeedback != nil {
		t.Fatalf("UserFeedback must be nil at analysis time")
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		t.Fatalf("Confidence %v out of range", m.Confidence)
	}
}

func TestAnalyzeDegradesOnFailures(t *testing.T) {
	t.Parallel()

	grammar := &fakeGrammar{err: errors.New("checker unreachable")}
	p := testPipeline(grammar)

	m := p.Analyze(context.Background(), "q", "короткий ответ", time.Second, nil)

	if m.GrammarErrors != 0 {
		t.Fatalf("GrammarErrors got %d want 0 on checker failure", m.GrammarErrors)
	}
}

func TestAnalyzeMalformedInput(t *testing.T) {
	t.Parallel()

	p := testPipeline(nil)

	// Foreign-script and degenerate input must not panic and must stay in range.
	inputs := []string{"", "   ", "漢字のみの答えです。", "\x00\x01", "emoji 🎓 answer"}
	for _, answer := range inputs {
		m := p.Analyze(context.Background(), "question", answer, 0, nil)
		if m.Confidence < 0 || m.Confidence > 1 {
			t.Fatalf("Analyze(%q) confidence %v out of range", answer, m.Confidence)
		}
		if m.Sentiment < -1 || m.Sentiment > 1 {
			t.Fatalf("Analyze(%q) sentiment %v out of range", answer, m.Sentiment)
		}
	}
}

func TestSentimentPolarity(t *testing.T) {
	t.Parallel()

	if got := Sentiment("Отлично, спасибо за помощь!"); got <= 0 {
		t.Fatalf("positive text scored %v", got)
	}
	if got := Sentiment("Это ужасно, постоянная ошибка"); got >= 0 {
		t.Fatalf("negative text scored %v", got)
	}
	if got := Sentiment("Расписание в корпусе на стенде"); got != 0 {
		t.Fatalf("neutral text scored %v want 0", got)
	}
}

func TestReadability(t *testing.T) {
	t.Parallel()

	simple := FleschReadingEase("The cat sat. The dog ran.")
	hard := FleschReadingEase("Administrative considerations necessitate comprehensive documentation procedures.")
	if simple <= hard {
		t.Fatalf("simple text %v should score higher than hard text %v", simple, hard)
	}

	if got := DifficultWords("cat dog administrative university"); got != 2 {
		t.Fatalf("DifficultWords got %d want 2", got)
	}
}
