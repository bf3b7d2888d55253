package analysis

import (
	"strings"
	"unicode"

	prose "github.com/jdkato/prose/v2"
)

// FleschReadingEase computes the standard reading-ease score over the text.
// Sentence boundaries come from the prose segmenter; when segmentation fails
// on degenerate input the score degrades to neutral 0.
func FleschReadingEase(text string) float64 {
	words, sentences, syllables := textStats(text)
	if words == 0 || sentences == 0 {
		return 0.0
	}

	wps := float64(words) / float64(sentences)
	spw := float64(syllables) / float64(words)

	return 206.835 - 1.015*wps - 84.6*spw
}

// DifficultWords counts tokens with three or more syllables.
func DifficultWords(text string) int {
	count := 0
	for _, w := range tokenize(text) {
		if syllableCount(w) >= 3 {
			count++
		}
	}
	return count
}

func textStats(text string) (words, sentences, syllables int) {
	tokens := tokenize(text)
	words = len(tokens)
	for _, t := range tokens {
		syllables += syllableCount(t)
	}
	sentences = sentenceCount(text)
	return words, sentences, syllables
}

func tokenize(text string) []string {
	var tokens []string
	for _, f := range strings.Fields(text) {
		w := strings.Trim(f, wordTrimCutset)
		if w == "" {
			continue
		}
		hasLetter := false
		for _, r := range w {
			if unicode.IsLetter(r) {
				hasLetter = true
				break
			}
		}
		if hasLetter {
			tokens = append(tokens, w)
		}
	}
	return tokens
}

func sentenceCount(text string) int {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err == nil {
		if n := len(doc.Sentences()); n > 0 {
			return n
		}
	}

	// Fallback: terminal punctuation runs.
	n := 0
	inRun := false
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if !inRun {
				n++
				inRun = true
			}
		} else {
			inRun = false
		}
	}
	if n == 0 && strings.TrimSpace(text) != "" {
		n = 1
	}
	return n
}

const latinVowels = "aeiouy"
const cyrillicVowels = "аеёиоуыэюя"

// syllableCount approximates syllables: vowel groups for Latin script, one
// syllable per vowel for Cyrillic. Words with letters count at least one.
func syllableCount(word string) int {
	lower := strings.ToLower(word)

	count := 0
	prevLatinVowel := false
	hasLetter := false

	for _, r := range lower {
		if unicode.IsLetter(r) {
			hasLetter = true
		}

		if strings.ContainsRune(cyrillicVowels, r) {
			count++
			prevLatinVowel = false
			continue
		}

		if strings.ContainsRune(latinVowels, r) {
			if !prevLatinVowel {
				count++
			}
			prevLatinVowel = true
		} else {
			prevLatinVowel = false
		}
	}

	if count == 0 && hasLetter {
		count = 1
	}
	return count
}
