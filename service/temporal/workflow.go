package temporal

import (
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/tokenarcade/relay/service/db"
)

var a *Activities // for type-safe activity invocation

const (
	// DefaultFollowUpRounds bounds how many status sweeps the workflow
	// performs before settling on unconfirmed.
	DefaultFollowUpRounds = 10

	// DefaultFollowUpInterval is the spacing between sweeps.
	DefaultFollowUpInterval = 30 * time.Second
)

// ConfirmationFollowUpWorkflow keeps checking a submitted transaction whose
// in-request poll budget ran out without an answer. Each round performs one
// status sweep across the endpoint pool; the workflow ends at the first
// terminal answer or after the round budget, recording whatever it learned
// in the journal and publishing the terminal event.
func ConfirmationFollowUpWorkflow(ctx workflow.Context, input FollowUpInput) (*FollowUpResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("ConfirmationFollowUpWorkflow started", "signature", input.Signature)

	maxRounds := input.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultFollowUpRounds
	}
	interval := input.RoundInterval
	if interval <= 0 {
		interval = DefaultFollowUpInterval
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	result := &FollowUpResult{
		Signature: input.Signature,
		Status:    db.StatusUnconfirmed,
	}

	for round := 1; round <= maxRounds; round++ {
		result.Rounds = round

		var check *CheckStatusResult
		err := workflow.ExecuteActivity(ctx, a.CheckSignatureStatus, CheckStatusInput{
			Signature: input.Signature,
		}).Get(ctx, &check)
		if err != nil {
			// All endpoints down this round; keep the budget going.
			logger.Warn("status sweep failed", "signature", input.Signature, "round", round, "error", err)
		} else {
			switch check.State {
			case "confirmed", "finalized":
				slot := int64(check.Slot)
				result.Status = db.StatusConfirmed
				result.Slot = &slot
			case "failed":
				result.Status = db.StatusFailed
				result.Error = check.ChainError
			}
			if result.Status != db.StatusUnconfirmed {
				break
			}
		}

		if round < maxRounds {
			if err := workflow.Sleep(ctx, interval); err != nil {
				return nil, err
			}
		}
	}

	logger.Info("follow-up resolved",
		"signature", input.Signature,
		"status", result.Status,
		"rounds", result.Rounds,
	)

	err := workflow.ExecuteActivity(ctx, a.RecordFinalStatus, RecordFinalStatusInput{
		SubmissionID: input.SubmissionID,
		Signature:    input.Signature,
		Signer:       input.Signer,
		Status:       result.Status,
		Slot:         result.Slot,
		Attempts:     input.Attempts,
		Error:        result.Error,
	}).Get(ctx, nil)
	if err != nil {
		logger.Error("failed to record final status", "signature", input.Signature, "error", err)
		return result, err
	}

	return result, nil
}
