package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/campusbot/backend/internal/storage/sqlite"
	"github.com/campusbot/backend/pkg/logger"
)

// HistoryHandler serves recent exchanges with their metrics, the same join
// the dashboard reads.
type HistoryHandler struct {
	store *sqlite.Store
}

func NewHistoryHandler(store *sqlite.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}

	exchanges, err := h.store.RecentExchanges(c.Context(), limit)
	if err != nil {
		logger.Error("Failed to load history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load history",
		})
	}

	type row struct {
		LogID      int64   `json:"log_id"`
		Timestamp  string  `json:"timestamp"`
		UserID     int64   `json:"user_id"`
		Question   string  `json:"question"`
		Answer     string  `json:"answer"`
		Confidence float64 `json:"confidence"`
		Sentiment  float64 `json:"sentiment"`
		Category   string  `json:"category"`
		Feedback   *int    `json:"user_feedback"`
	}

	rows := make([]row, 0, len(exchanges))
	for _, ex := range exchanges {
		rows = append(rows, row{
			LogID:      ex.Log.ID,
			Timestamp:  ex.Log.Timestamp,
			UserID:     ex.Log.UserID,
			Question:   ex.Log.Question,
			Answer:     ex.Log.Answer,
			Confidence: ex.Analysis.Confidence,
			Sentiment:  ex.Analysis.Sentiment,
			Category:   ex.Analysis.Category,
			Feedback:   ex.Analysis.UserFeedback,
		})
	}

	return c.JSON(fiber.Map{"history": rows})
}
