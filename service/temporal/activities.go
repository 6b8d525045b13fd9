package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tokenarcade/relay/service/db"
	"github.com/tokenarcade/relay/service/events"
	"github.com/tokenarcade/relay/service/metrics"
	"github.com/tokenarcade/relay/service/solana"
)

// FollowUpInput contains the input parameters for the confirmation
// follow-up workflow. SubmissionID is empty when the journal is disabled.
type FollowUpInput struct {
	SubmissionID string `json:"submission_id,omitempty"`
	Signature    string `json:"signature"`
	Signer       string `json:"signer,omitempty"`
	Attempts     int32  `json:"attempts,omitempty"`

	// MaxRounds and RoundInterval override the defaults when positive.
	MaxRounds     int           `json:"max_rounds,omitempty"`
	RoundInterval time.Duration `json:"round_interval,omitempty"`
}

// FollowUpResult contains the final outcome of the follow-up workflow.
type FollowUpResult struct {
	Signature string  `json:"signature"`
	Status    string  `json:"status"` // confirmed, failed, or unconfirmed
	Slot      *int64  `json:"slot,omitempty"`
	Rounds    int     `json:"rounds"`
	Error     *string `json:"error,omitempty"`
}

// CheckStatusInput contains parameters for the CheckSignatureStatus activity.
type CheckStatusInput struct {
	Signature string `json:"signature"`
}

// CheckStatusResult contains the result of one status sweep.
type CheckStatusResult struct {
	State      string  `json:"state"` // processing, confirmed, finalized, or failed
	Slot       uint64  `json:"slot,omitempty"`
	ChainError *string `json:"chain_error,omitempty"`
}

// RecordFinalStatusInput contains parameters for the RecordFinalStatus
// activity.
type RecordFinalStatusInput struct {
	SubmissionID string  `json:"submission_id,omitempty"`
	Signature    string  `json:"signature"`
	Signer       string  `json:"signer,omitempty"`
	Status       string  `json:"status"`
	Slot         *int64  `json:"slot,omitempty"`
	Attempts     int32   `json:"attempts,omitempty"`
	Error        *string `json:"error,omitempty"`
}

// StatusChecker defines the one-shot chain query needed by activities.
// This allows for easy mocking in tests.
type StatusChecker interface {
	CheckStatus(ctx context.Context, signature string) (*solana.Status, error)
}

// JournalInterface defines the database operations needed by activities.
// This allows for easy mocking in tests.
type JournalInterface interface {
	UpdateSubmissionStatus(ctx context.Context, params db.UpdateSubmissionStatusParams) (*db.Submission, error)
}

// PublisherInterface defines the event publishing operations needed by
// activities. This allows for easy mocking in tests.
type PublisherInterface interface {
	PublishSubmission(ctx context.Context, event *events.SubmissionEvent) error
}

// Activities holds the dependencies needed by Temporal activities.
// All dependencies are explicit; journal and publisher may be nil when the
// corresponding integration is disabled.
type Activities struct {
	checker   StatusChecker
	store     JournalInterface
	publisher PublisherInterface
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If m is nil, no metrics will be recorded.
func NewActivities(
	checker StatusChecker,
	store JournalInterface,
	publisher PublisherInterface,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		checker:   checker,
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

// CheckSignatureStatus performs one status sweep across the endpoint pool.
// An error means no endpoint answered; Temporal's retry policy handles it.
func (a *Activities) CheckSignatureStatus(ctx context.Context, input CheckStatusInput) (*CheckStatusResult, error) {
	a.logger.DebugContext(ctx, "checking signature status", "signature", input.Signature)

	status, err := a.checker.CheckStatus(ctx, input.Signature)
	if err != nil {
		a.logger.WarnContext(ctx, "status check failed on all endpoints",
			"signature", input.Signature,
			"error", err,
		)
		return nil, fmt.Errorf("status check: %w", err)
	}

	result := &CheckStatusResult{
		State: status.State,
		Slot:  status.Slot,
	}
	if status.ChainErr != nil {
		msg := fmt.Sprintf("%v", status.ChainErr)
		result.ChainError = &msg
	}

	a.logger.InfoContext(ctx, "checked signature status",
		"signature", input.Signature,
		"state", result.State,
		"slot", result.Slot,
	)
	return result, nil
}

// RecordFinalStatus writes the terminal status to the journal and publishes
// the terminal event. Both integrations are best-effort when absent but a
// configured journal failing is an activity error so Temporal retries it.
func (a *Activities) RecordFinalStatus(ctx context.Context, input RecordFinalStatusInput) error {
	a.logger.InfoContext(ctx, "recording final submission status",
		"signature", input.Signature,
		"status", input.Status,
	)

	a.metrics.RecordSubmission(input.Status, int(input.Attempts))

	var sub *db.Submission
	if a.store != nil && input.SubmissionID != "" {
		id, err := uuid.Parse(input.SubmissionID)
		if err != nil {
			return fmt.Errorf("invalid submission id %q: %w", input.SubmissionID, err)
		}
		sub, err = a.store.UpdateSubmissionStatus(ctx, db.UpdateSubmissionStatusParams{
			ID:       id,
			Status:   input.Status,
			Slot:     input.Slot,
			Attempts: input.Attempts,
			Error:    input.Error,
		})
		if err != nil {
			return fmt.Errorf("update submission %s: %w", input.SubmissionID, err)
		}
	}

	if a.publisher == nil {
		return nil
	}

	var event *events.SubmissionEvent
	if sub != nil {
		event = events.FromSubmission(sub)
	} else {
		// No journal row to echo; build the event from the activity input.
		now := time.Now().UTC()
		event = &events.SubmissionEvent{
			ID:          input.SubmissionID,
			Signature:   &input.Signature,
			Signer:      input.Signer,
			Status:      input.Status,
			Slot:        input.Slot,
			Attempts:    input.Attempts,
			Error:       input.Error,
			CreatedAt:   now,
			UpdatedAt:   now,
			PublishedAt: now,
		}
	}

	if err := a.publisher.PublishSubmission(ctx, event); err != nil {
		// The journal is authoritative; a missed event is logged, not fatal.
		a.logger.ErrorContext(ctx, "failed to publish terminal submission event",
			"signature", input.Signature,
			"status", input.Status,
			"error", err,
		)
	}
	return nil
}
