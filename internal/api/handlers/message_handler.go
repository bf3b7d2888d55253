package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/campusbot/backend/internal/onboarding"
	"github.com/campusbot/backend/internal/orchestrator"
	"github.com/campusbot/backend/pkg/logger"
)

// MessageHandler receives free-form message events from the bot transport.
type MessageHandler struct {
	orch    *orchestrator.Orchestrator
	machine *onboarding.Machine
}

func NewMessageHandler(orch *orchestrator.Orchestrator, machine *onboarding.Machine) *MessageHandler {
	return &MessageHandler{
		orch:    orch,
		machine: machine,
	}
}

type chunkResponse struct {
	Text            string `json:"text"`
	UpvotePayload   string `json:"upvote_payload"`
	DownvotePayload string `json:"downvote_payload"`
}

type promptResponse struct {
	State    string   `json:"state"`
	Question string   `json:"question,omitempty"`
	Options  []string `json:"options,omitempty"`
}

func (h *MessageHandler) HandleMessage(c *fiber.Ctx) error {
	var req struct {
		UserID   int64  `json:"user_id"`
		Username string `json:"username"`
		Text     string `json:"text"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.UserID == 0 || req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id and text are required",
		})
	}

	turn, err := h.orch.HandleMessage(c.Context(), req.UserID, req.Username, req.Text)
	if errors.Is(err, orchestrator.ErrOnboardingRequired) {
		prompt, err := h.machine.Begin(c.Context(), req.UserID)
		if err != nil {
			logger.Error("Failed to start onboarding", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to start onboarding",
			})
		}
		return c.JSON(fiber.Map{
			"onboarding": promptResponse{
				State:    prompt.State.String(),
				Question: prompt.Question,
				Options:  prompt.Options,
			},
		})
	}
	if err != nil {
		logger.Error("Failed to process message", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to process message",
		})
	}

	chunks := make([]chunkResponse, 0, len(turn.Chunks))
	for _, ch := range turn.Chunks {
		chunks = append(chunks, chunkResponse{
			Text:            ch.Text,
			UpvotePayload:   ch.UpvotePayload,
			DownvotePayload: ch.DownvotePayload,
		})
	}

	return c.JSON(fiber.Map{
		"log_id": turn.LogID,
		"chunks": chunks,
	})
}
