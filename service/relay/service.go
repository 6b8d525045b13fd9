// Package relay orchestrates the full submission flow: sign, submit through
// the endpoint pool, await confirmation, and record what happened in the
// journal, the event stream, and (for unresolved submissions) a durable
// follow-up workflow.
package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"github.com/tokenarcade/relay/service/db"
	"github.com/tokenarcade/relay/service/events"
	"github.com/tokenarcade/relay/service/metrics"
	"github.com/tokenarcade/relay/service/solana"
	"github.com/tokenarcade/relay/service/temporal"
	"github.com/tokenarcade/relay/service/wallet"
)

// Outcome is the structured result of a submission. An error outcome always
// carries an empty signature: callers either get a signature they can track
// or a reason, never a half-answer.
type Outcome struct {
	Signature string `json:"signature"`
	Confirmed bool   `json:"confirmed"`
	Slot      uint64 `json:"slot,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Signer produces transaction signatures. *wallet.Manager satisfies this.
type Signer interface {
	IsConfigured() bool
	PublicKey() (string, bool)
	SignTransaction(raw []byte) ([]byte, error)
}

// Submitter sends a signed transaction through the endpoint pool.
// *solana.Submitter satisfies this.
type Submitter interface {
	Submit(ctx context.Context, signedTx []byte) (string, *solana.Receipt, error)
}

// Confirmer awaits a submitted transaction's fate. *solana.Confirmer
// satisfies this.
type Confirmer interface {
	AwaitConfirmation(ctx context.Context, signature string) (*solana.Confirmation, error)
}

// Journal persists submission rows. *db.Store satisfies this.
type Journal interface {
	CreateSubmission(ctx context.Context, params db.CreateSubmissionParams) (*db.Submission, error)
	UpdateSubmissionStatus(ctx context.Context, params db.UpdateSubmissionStatusParams) (*db.Submission, error)
}

// Service runs the relay control flow. Journal, publisher, and starter are
// optional: a nil value disables that integration and the core
// sign-submit-confirm path still works.
type Service struct {
	signer    Signer
	submitter Submitter
	confirmer Confirmer
	journal   Journal
	publisher events.Publisher
	starter   temporal.Starter
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Config collects the Service dependencies.
type Config struct {
	Signer    Signer
	Submitter Submitter
	Confirmer Confirmer
	Journal   Journal          // Optional
	Publisher events.Publisher // Optional
	Starter   temporal.Starter // Optional
	Metrics   *metrics.Metrics // Optional
	Logger    *slog.Logger
}

// NewService creates a relay service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		signer:    cfg.Signer,
		submitter: cfg.Submitter,
		confirmer: cfg.Confirmer,
		journal:   cfg.Journal,
		publisher: cfg.Publisher,
		starter:   cfg.Starter,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// WalletConfigured reports whether the relay can sign submissions.
func (s *Service) WalletConfigured() bool {
	return s.signer.IsConfigured()
}

// WalletPublicKey returns the relay's signing address when configured.
func (s *Service) WalletPublicKey() (string, bool) {
	return s.signer.PublicKey()
}

// SubmitAndConfirm signs a base64-encoded transaction, submits it, and
// waits for confirmation within the in-request poll budget. It always
// returns a structured Outcome, never an error: every failure mode is a
// legitimate answer to the caller.
func (s *Service) SubmitAndConfirm(ctx context.Context, base64Tx string) Outcome {
	if !s.signer.IsConfigured() {
		return Outcome{Error: "wallet not configured"}
	}

	raw, err := base64.StdEncoding.DecodeString(base64Tx)
	if err != nil {
		return Outcome{Error: "invalid transaction encoding: " + err.Error()}
	}

	signed, err := s.signer.SignTransaction(raw)
	if err != nil {
		if errors.Is(err, wallet.ErrNotConfigured) {
			return Outcome{Error: "wallet not configured"}
		}
		return Outcome{Error: "failed to sign transaction: " + err.Error()}
	}

	signer, _ := s.signer.PublicKey()

	signature, receipt, err := s.submitter.Submit(ctx, signed)
	if err != nil {
		msg := err.Error()
		s.metrics.RecordSubmission(db.StatusFailed, receipt.Attempts)
		s.journalFinal(ctx, nil, db.StatusFailed, signer, receipt, nil, &msg)
		return Outcome{Error: msg}
	}

	// The chain now knows this transaction; journal it before polling so a
	// crash mid-confirmation still leaves a record.
	sub := s.journalAccepted(ctx, signature, signer, receipt)

	conf, err := s.confirmer.AwaitConfirmation(ctx, signature)
	if err != nil {
		var failed *solana.TransactionFailedError
		msg := err.Error()
		if errors.As(err, &failed) {
			s.logger.WarnContext(ctx, "transaction failed on chain",
				"signature", signature,
				"error", failed.ChainErr,
			)
		}
		s.metrics.RecordSubmission(db.StatusFailed, receipt.Attempts)
		s.journalFinal(ctx, sub, db.StatusFailed, signer, receipt, nil, &msg)
		return Outcome{Error: msg}
	}

	if conf.Confirmed {
		slot := int64(conf.Slot)
		s.metrics.RecordSubmission(db.StatusConfirmed, receipt.Attempts)
		s.journalFinal(ctx, sub, db.StatusConfirmed, signer, receipt, &slot, nil)
		return Outcome{Signature: signature, Confirmed: true, Slot: conf.Slot}
	}

	// Poll budget exhausted without an answer. Report the soft result and
	// hand the open question to the durable follow-up.
	s.metrics.RecordSubmission(db.StatusUnconfirmed, receipt.Attempts)
	s.journalFinal(ctx, sub, db.StatusUnconfirmed, signer, receipt, nil, nil)
	s.startFollowUp(ctx, sub, signature, signer, receipt)

	return Outcome{Signature: signature, Confirmed: false}
}

// journalAccepted records a freshly accepted submission and publishes the
// submitted event. Returns nil when the journal is disabled or the write
// fails; the relay flow continues either way.
func (s *Service) journalAccepted(ctx context.Context, signature, signer string, receipt *solana.Receipt) *db.Submission {
	if s.journal == nil {
		return nil
	}
	sub, err := s.journal.CreateSubmission(ctx, db.CreateSubmissionParams{
		Signature: &signature,
		Signer:    signer,
		Endpoint:  receipt.Endpoint,
		Status:    db.StatusSubmitted,
		Attempts:  int32(receipt.Attempts),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to journal submission",
			"signature", signature,
			"error", err,
		)
		return nil
	}
	s.publish(ctx, events.FromSubmission(sub))
	return sub
}

// journalFinal records a submission's final status. When the submission was
// never journaled (sub == nil) a standalone row is written so failed sends
// are still visible in listings.
func (s *Service) journalFinal(ctx context.Context, sub *db.Submission, status, signer string, receipt *solana.Receipt, slot *int64, errMsg *string) {
	if s.journal == nil {
		return
	}

	var (
		updated *db.Submission
		err     error
	)
	if sub != nil {
		updated, err = s.journal.UpdateSubmissionStatus(ctx, db.UpdateSubmissionStatusParams{
			ID:       sub.ID,
			Status:   status,
			Slot:     slot,
			Attempts: int32(receipt.Attempts),
			Error:    errMsg,
		})
	} else {
		updated, err = s.journal.CreateSubmission(ctx, db.CreateSubmissionParams{
			Signer:   signer,
			Endpoint: receipt.Endpoint,
			Status:   status,
			Attempts: int32(receipt.Attempts),
			Error:    errMsg,
		})
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to journal submission outcome",
			"status", status,
			"error", err,
		)
		return
	}
	s.publish(ctx, events.FromSubmission(updated))
}

func (s *Service) publish(ctx context.Context, event *events.SubmissionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSubmission(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish submission event",
			"id", event.ID,
			"status", event.Status,
			"error", err,
		)
	}
}

// startFollowUp kicks off the durable confirmation follow-up for a
// submission the in-request budget could not resolve.
func (s *Service) startFollowUp(ctx context.Context, sub *db.Submission, signature, signer string, receipt *solana.Receipt) {
	if s.starter == nil {
		return
	}
	input := temporal.FollowUpInput{
		Signature: signature,
		Signer:    signer,
		Attempts:  int32(receipt.Attempts),
	}
	if sub != nil {
		input.SubmissionID = sub.ID.String()
	}
	if err := s.starter.StartFollowUp(ctx, input); err != nil {
		s.logger.ErrorContext(ctx, "failed to start confirmation follow-up",
			"signature", signature,
			"error", err,
		)
	}
}
