package analysis

import (
	"fmt"
	"regexp"
)

// PatternSet holds the regex lists used for flag detection. The sets are data
// rather than code so operators can extend them to more languages via config.
type PatternSet struct {
	Template  []*regexp.Regexp
	Refusal   []*regexp.Regexp
	Reference *regexp.Regexp
}

var defaultTemplatePatterns = []string{
	`(?i)as an ai language model`,
	`(?i)как (?:модель|искусственный интеллект)`,
	`(?i)я не могу (?:ответить|предоставить)`,
}

var defaultRefusalPatterns = []string{
	`(?i)извините[, ]+но я не могу`,
	`(?i)i'?m sorry[, ]+but i cannot`,
	`(?i)к сожалению[, ]+я не могу`,
}

// referencePattern catches a 1-2 digit number followed by a word, the usual
// shape of a date mention.
const referencePattern = `\d{1,2}\s*[а-яa-z]{3,}`

func DefaultPatterns() PatternSet {
	ps, err := CompilePatterns(defaultTemplatePatterns, defaultRefusalPatterns)
	if err != nil {
		panic(fmt.Sprintf("built-in patterns must compile: %v", err))
	}
	return ps
}

// CompilePatterns builds a PatternSet from configured pattern strings.
func CompilePatterns(template, refusal []string) (PatternSet, error) {
	ps := PatternSet{
		Reference: regexp.MustCompile(referencePattern),
	}

	for _, p := range template {
		re, err := regexp.Compile(p)
		if err != nil {
			return PatternSet{}, fmt.Errorf("invalid template pattern %q: %w", p, err)
		}
		ps.Template = append(ps.Template, re)
	}

	for _, p := range refusal {
		re, err := regexp.Compile(p)
		if err != nil {
			return PatternSet{}, fmt.Errorf("invalid refusal pattern %q: %w", p, err)
		}
		ps.Refusal = append(ps.Refusal, re)
	}

	return ps, nil
}

func (ps PatternSet) MatchTemplate(text string) bool {
	return matchAny(text, ps.Template)
}

func (ps PatternSet) MatchRefusal(text string) bool {
	return matchAny(text, ps.Refusal)
}

func (ps PatternSet) MatchReference(text string) bool {
	return ps.Reference != nil && ps.Reference.MatchString(text)
}

func matchAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
