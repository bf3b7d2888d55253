package analysis

import (
	"context"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusbot/backend/pkg/logger"
)

// Metrics is the quality profile computed for one answer. UserFeedback stays
// nil at analysis time; the feedback correlator fills it in later.
type Metrics struct {
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

// Hedge words lower the heuristic confidence score. Matching is by substring
// over the lowercased text, not token-exact.
var hedgeWords = []string{
	"возможно", "может", "полагаю", "кажется", "вероятно",
	"maybe", "probably", "perhaps", "i think",
}

type Pipeline struct {
	patterns  PatternSet
	grammar   GrammarChecker
	languages []string
}

// NewPipeline builds the analysis pipeline. grammar may be nil, in which case
// grammar error counts degrade to zero.
func NewPipeline(patterns PatternSet, grammar GrammarChecker, languages []string) *Pipeline {
	return &Pipeline{
		patterns:  patterns,
		grammar:   grammar,
		languages: languages,
	}
}

// Analyze computes the full metric set from one exchange. It never fails:
// every sub-step substitutes its neutral default when the input is malformed
// or an external scorer is unreachable.
func (p *Pipeline) Analyze(ctx context.Context, question, answer string, elapsed time.Duration, evidence []Evidence) Metrics {
	clean := strings.TrimSpace(answer)

	return Metrics{
		Confidence:     p.confidence(clean, evidence),
		Sentiment:      Sentiment(clean),
		TemplateFlag:   boolToInt(p.patterns.MatchTemplate(clean)),
		WordCount:      len(strings.Fields(clean)),
		ResponseTime:   elapsed.Seconds(),
		ReferenceFlag:  boolToInt(p.patterns.MatchReference(clean)),
		RefusalFlag:    boolToInt(p.patterns.MatchRefusal(clean)),
		Readability:    FleschReadingEase(clean),
		GrammarErrors:  p.grammarErrors(ctx, clean),
		ComplexWords:   DifficultWords(clean),
		QuestionRepeat: boolToInt(questionRepeat(question, clean)),
	}
}

// confidence prefers normalized evidence; the mean is rounded to 4 decimals
// and clamped to [0, 1] before storage. Without usable evidence it falls back
// to the hedge-word heuristic rounded to 2 decimals.
func (p *Pipeline) confidence(text string, evidence []Evidence) float64 {
	if mean, ok := meanEvidence(evidence); ok {
		return clamp01(round(mean, 4))
	}
	return hedgeConfidence(text)
}

func hedgeConfidence(text string) float64 {
	lower := strings.ToLower(text)

	total := len(strings.Fields(lower))
	if total == 0 {
		total = 1
	}

	hits := 0
	for _, w := range hedgeWords {
		hits += strings.Count(lower, w)
	}

	conf := math.Max(0, 1-(float64(hits)/float64(total))*5)
	return round(conf, 2)
}

func (p *Pipeline) grammarErrors(ctx context.Context, text string) int {
	if p.grammar == nil || text == "" {
		return 0
	}

	total := 0
	for _, lang := range p.languages {
		count, err := p.grammar.Check(ctx, text, lang)
		if err != nil {
			logger.Debug("Grammar check degraded",
				zap.String("language", lang),
				zap.Error(err),
			)
			continue
		}
		total += count
	}
	return total
}

// questionRepeat reports whether the answer opens by echoing the question's
// first 50 characters.
func questionRepeat(question, answer string) bool {
	prefix := []rune(strings.ToLower(question))
	if len(prefix) > 50 {
		prefix = prefix[:50]
	}
	return strings.HasPrefix(strings.ToLower(answer), string(prefix))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
