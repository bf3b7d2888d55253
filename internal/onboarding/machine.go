package onboarding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusbot/backend/internal/metrics"
	"github.com/campusbot/backend/internal/storage/models"
	"github.com/campusbot/backend/pkg/logger"
)

// ProfileStore is the durable side of onboarding.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) error
}

// Prompt tells the transport layer what to ask next. Options is empty once
// the machine reaches StateComplete.
type Prompt struct {
	State    State
	Question string
	Options  []string
}

type Machine struct {
	profiles ProfileStore
	sessions SessionStore
}

func NewMachine(profiles ProfileStore, sessions SessionStore) *Machine {
	return &Machine{
		profiles: profiles,
		sessions: sessions,
	}
}

// Ready reports whether the user may use free-form chat.
func (m *Machine) Ready(ctx context.Context, userID int64) (bool, error) {
	p, err := m.profiles.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}
	return p != nil, nil
}

// Begin starts (or restarts) the flow. A user with a durable profile
// short-circuits straight to StateComplete; stored data is never reset.
// Otherwise any stale draft is discarded and collection restarts from the
// campus question.
func (m *Machine) Begin(ctx context.Context, userID int64) (Prompt, error) {
	p, err := m.profiles.GetProfile(ctx, userID)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to check profile: %w", err)
	}
	if p != nil {
		return Prompt{State: StateComplete}, nil
	}

	if err := m.sessions.Delete(ctx, userID); err != nil {
		return Prompt{}, fmt.Errorf("failed to clear stale draft: %w", err)
	}

	draft := &Draft{State: StateAwaitingCampus}
	if err := m.sessions.Put(ctx, userID, draft); err != nil {
		return Prompt{}, fmt.Errorf("failed to open draft: %w", err)
	}

	logger.Debug("Onboarding started", zap.Int64("user_id", userID))

	return promptFor(StateAwaitingCampus), nil
}

// Choose applies one discrete choice event. An event arriving with no open
// draft (out-of-order or duplicate) starts a fresh draft instead of writing
// a partial profile. The final transition persists the full profile and
// discards the draft.
func (m *Machine) Choose(ctx context.Context, userID int64, value string) (Prompt, error) {
	draft, err := m.sessions.Get(ctx, userID)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to load draft: %w", err)
	}
	if draft == nil {
		logger.Warn("Choice event without open draft, restarting flow",
			zap.Int64("user_id", userID),
		)
		return m.Begin(ctx, userID)
	}

	switch draft.State {
	case StateAwaitingCampus:
		draft.Campus = value
		draft.State = StateAwaitingLevel
		if err := m.sessions.Put(ctx, userID, draft); err != nil {
			return Prompt{}, fmt.Errorf("failed to save draft: %w", err)
		}
		return promptFor(StateAwaitingLevel), nil

	case StateAwaitingLevel:
		draft.EducationLevel = value
		draft.State = StateAwaitingType
		if err := m.sessions.Put(ctx, userID, draft); err != nil {
			return Prompt{}, fmt.Errorf("failed to save draft: %w", err)
		}
		return promptFor(StateAwaitingType), nil

	case StateAwaitingType:
		draft.EducationType = value

		profile := &models.Profile{
			UserID:         userID,
			Campus:         draft.Campus,
			EducationLevel: draft.EducationLevel,
			EducationType:  draft.EducationType,
		}
		if err := m.profiles.UpsertProfile(ctx, profile); err != nil {
			return Prompt{}, fmt.Errorf("failed to store profile: %w", err)
		}

		if err := m.sessions.Delete(ctx, userID); err != nil {
			logger.Warn("Failed to discard completed draft", zap.Error(err))
		}

		metrics.OnboardingCompletions.Inc()
		logger.Info("Onboarding completed",
			zap.Int64("user_id", userID),
			zap.String("campus", profile.Campus),
		)

		return Prompt{State: StateComplete}, nil

	default:
		// Draft in an unexpected state; restart rather than guess.
		return m.Begin(ctx, userID)
	}
}

func promptFor(s State) Prompt {
	switch s {
	case StateAwaitingCampus:
		return Prompt{State: s, Question: "Выберите кампус", Options: Campuses}
	case StateAwaitingLevel:
		return Prompt{State: s, Question: "Выберите уровень обучения", Options: Levels}
	case StateAwaitingType:
		return Prompt{State: s, Question: "Выберите форму обучения", Options: Types}
	default:
		return Prompt{State: s}
	}
}
