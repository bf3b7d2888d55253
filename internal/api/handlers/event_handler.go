package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/campusbot/backend/internal/feedback"
	"github.com/campusbot/backend/internal/onboarding"
	"github.com/campusbot/backend/pkg/logger"
)

// EventHandler receives interactive-control events: vote payloads and
// onboarding choice values.
type EventHandler struct {
	correlator *feedback.Correlator
	machine    *onboarding.Machine
}

func NewEventHandler(correlator *feedback.Correlator, machine *onboarding.Machine) *EventHandler {
	return &EventHandler{
		correlator: correlator,
		machine:    machine,
	}
}

func (h *EventHandler) HandleEvent(c *fiber.Ctx) error {
	var req struct {
		UserID  int64  `json:"user_id"`
		Payload string `json:"payload"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Payload == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "payload is required",
		})
	}

	if feedback.IsVotePayload(req.Payload) {
		err := h.correlator.Apply(c.Context(), req.Payload)
		if errors.Is(err, feedback.ErrMalformedPayload) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Malformed vote payload",
			})
		}
		if err != nil {
			logger.Error("Failed to apply vote", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to apply vote",
			})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}

	if req.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "user_id is required for onboarding events",
		})
	}

	prompt, err := h.machine.Choose(c.Context(), req.UserID, req.Payload)
	if err != nil {
		logger.Error("Failed to advance onboarding", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to advance onboarding",
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
