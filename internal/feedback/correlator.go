package feedback

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/campusbot/backend/internal/metrics"
	"github.com/campusbot/backend/pkg/logger"
)

// Vote payloads come from the inline controls attached to every answer
// chunk: "confirm_yes_<logID>" or "confirm_no_<logID>".

var ErrMalformedPayload = errors.New("malformed vote payload")

const payloadPrefix = "confirm_"

// IsVotePayload reports whether an interactive-control payload is a vote.
func IsVotePayload(payload string) bool {
	return strings.HasPrefix(payload, payloadPrefix)
}

// VotePayload renders the control payload binding a decision to a log entry.
func VotePayload(decision string, logID int64) string {
	return fmt.Sprintf("%s%s_%d", payloadPrefix, decision, logID)
}

// ParseVote extracts (vote, logID) from a payload. yes maps to +1, no to -1.
func ParseVote(payload string) (int, int64, error) {
	parts := strings.Split(payload, "_")
	if len(parts) != 3 || parts[0] != "confirm" {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedPayload, payload)
	}

	var vote int
	switch parts[1] {
	case "yes":
		vote = 1
	case "no":
		vote = -1
	default:
		return 0, 0, fmt.Errorf("%w: unknown decision %q", ErrMalformedPayload, parts[1])
	}

	logID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad log id %q", ErrMalformedPayload, parts[2])
	}

	return vote, logID, nil
}

type Store interface {
	UpdateFeedback(ctx context.Context, logID int64, vote int) (int64, error)
}

// Correlator binds asynchronous vote events back to their analysis rows.
type Correlator struct {
	store Store
}

func NewCorrelator(store Store) *Correlator {
	return &Correlator{store: store}
}

// Apply records one vote. Votes overwrite: the stored value is always the
// most recent decision. A vote for an unknown log id is an explicit no-op,
// counted and logged rather than silently dropped.
func (c *Correlator) Apply(ctx context.Context, payload string) error {
	vote, logID, err := ParseVote(payload)
	if err != nil {
		logger.Warn("Ignoring malformed vote payload",
			zap.String("payload", payload),
			zap.Error(err),
		)
		metrics.FeedbackIgnored.WithLabelValues("malformed").Inc()
		return err
	}

	rows, err := c.store.UpdateFeedback(ctx, logID, vote)
	if err != nil {
		return fmt.Errorf("failed to apply vote: %w", err)
	}

	if rows == 0 {
		logger.Warn("Vote references unknown log id, no-op",
			zap.Int64("log_id", logID),
		)
		metrics.FeedbackIgnored.WithLabelValues("unknown_log_id").Inc()
		return nil
	}

	decision := "up"
	if vote < 0 {
		decision = "down"
	}
	metrics.FeedbackVotes.WithLabelValues(decision).Inc()

	logger.Info("Feedback recorded",
		zap.Int64("log_id", logID),
		zap.Int("vote", vote),
	)

	return nil
}
