package temporal

import (
	"context"
)

// Starter kicks off confirmation follow-up workflows. The HTTP layer depends
// on this interface so it can be tested without a Temporal server.
type Starter interface {
	// StartFollowUp starts a follow-up workflow for a submitted
	// transaction. Idempotent per signature: starting twice for the same
	// signature is not an error.
	StartFollowUp(ctx context.Context, input FollowUpInput) error
}

// followUpWorkflowID returns the workflow ID for a signature's follow-up.
func followUpWorkflowID(signature string) string {
	return "confirm-followup-" + signature
}
