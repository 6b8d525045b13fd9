package events

import (
	"time"

	"github.com/tokenarcade/relay/service/db"
)

// SubmissionEvent represents a submission lifecycle event published to NATS.
// An event is published when an endpoint accepts the transaction and again
// when the submission reaches a terminal status, to the subject
// "submissions.{status}".
type SubmissionEvent struct {
	ID        string  `json:"id"`
	Signature *string `json:"signature,omitempty"`
	Signer    string  `json:"signer"`
	Status    string  `json:"status"`
	Slot      *int64  `json:"slot,omitempty"`
	Attempts  int32   `json:"attempts"`
	Error     *string `json:"error,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	PublishedAt time.Time `json:"published_at"`
}

// FromSubmission converts a journal row to a SubmissionEvent for publishing.
func FromSubmission(sub *db.Submission) *SubmissionEvent {
	return &SubmissionEvent{
		ID:          sub.ID.String(),
		Signature:   sub.Signature,
		Signer:      sub.Signer,
		Status:      sub.Status,
		Slot:        sub.Slot,
		Attempts:    sub.Attempts,
		Error:       sub.Error,
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
		PublishedAt: time.Now().UTC(),
	}
}
