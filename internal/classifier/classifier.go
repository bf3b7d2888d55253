package classifier

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campusbot/backend/internal/llm"
	"github.com/campusbot/backend/internal/metrics"
	"github.com/campusbot/backend/pkg/logger"
)

// Categories is the closed label set for question classification.
// FallbackCategory is the catch-all.
var Categories = []string{
	"Финансовые вопросы",
	"Учеба",
	"Цифровые сервисы и техподдержка",
	"Обратная связь",
	"Соц вопросы",
	"Наука",
	"Военка",
	"Внеучебка",
	"Практика",
	"Другое",
}

const FallbackCategory = "Другое"

type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type Classifier struct {
	completer Completer
	maxTokens int
	labelSet  map[string]struct{}
	prompt    string
}

func New(completer Completer, maxTokens int) *Classifier {
	labelSet := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		labelSet[c] = struct{}{}
	}

	prompt := fmt.Sprintf(
		"Определи категорию вопроса студента. Ответь ровно одним названием категории из списка, без пояснений:\n%s",
		strings.Join(Categories, "\n"),
	)

	return &Classifier{
		completer: completer,
		maxTokens: maxTokens,
		labelSet:  labelSet,
		prompt:    prompt,
	}
}

// Classify assigns one category to the question. It never fails: service
// errors and labels outside the enumeration both collapse to the catch-all,
// so classification can never block persistence of computed metrics.
func (c *Classifier) Classify(ctx context.Context, question string) string {
	resp, err := c.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: c.prompt,
		UserMessage:  question,
		Temperature:  0.1,
		MaxTokens:    c.maxTokens,
	})
	if err != nil {
		logger.Warn("Classification failed, using fallback category", zap.Error(err))
		metrics.ClassifierFallbacks.Inc()
		return FallbackCategory
	}

	label := strings.TrimSpace(resp.Content)
	if _, ok := c.labelSet[label]; !ok {
		logger.Warn("Classifier returned unknown label, clamping to fallback",
			zap.String("label", label),
		)
		metrics.ClassifierFallbacks.Inc()
		return FallbackCategory
	}

	return label
}
