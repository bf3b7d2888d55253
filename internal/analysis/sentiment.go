package analysis

import "strings"

// Lexicon polarity scoring. Traffic is bilingual, so both Russian and English
// markers are listed; values are in [-1, 1].
var sentimentLexicon = map[string]float64{
	// English
	"good": 0.6, "great": 0.8, "excellent": 1.0, "helpful": 0.6,
	"thanks": 0.5, "thank": 0.5, "happy": 0.7, "glad": 0.6,
	"useful": 0.5, "clear": 0.4, "best": 0.8, "love": 0.8,
	"bad": -0.6, "terrible": -0.9, "awful": -0.9, "wrong": -0.5,
	"problem": -0.4, "error": -0.4, "fail": -0.6, "failed": -0.6,
	"hate": -0.8, "worst": -0.9, "unclear": -0.4, "sorry": -0.3,

	// Russian
	"хорошо": 0.6, "отлично": 0.9, "прекрасно": 0.9, "спасибо": 0.5,
	"полезно": 0.5, "удобно": 0.5, "успешно": 0.6, "рад": 0.6,
	"помогу": 0.4, "поможет": 0.4, "легко": 0.4,
	"плохо": -0.6, "ужасно": -0.9, "ошибка": -0.4, "проблема": -0.4,
	"неправильно": -0.5, "жаль": -0.4, "сложно": -0.3, "невозможно": -0.6,
	"неудобно": -0.5, "извините": -0.3,
}

var negations = map[string]bool{
	"не": true, "нет": true, "not": true, "no": true, "never": true,
}

const wordTrimCutset = ".,!?;:()[]{}«»\"'—–-"

// Sentiment scores polarity in [-1, 1]. Text without any lexicon match
// scores neutral 0.
func Sentiment(text string) float64 {
	fields := strings.Fields(strings.ToLower(text))

	var sum float64
	var matched int
	negate := false

	for _, f := range fields {
		w := strings.Trim(f, wordTrimCutset)
		if w == "" {
			continue
		}

		if negations[w] {
			negate = true
			continue
		}

		if polarity, ok := sentimentLexicon[w]; ok {
			if negate {
				polarity = -polarity
			}
			sum += polarity
			matched++
		}
		negate = false
	}

	if matched == 0 {
		return 0.0
	}

	score := sum / float64(matched)
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}
