package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Submission statuses. A row starts as StatusSubmitted and is updated once
// with the terminal outcome; StatusUnconfirmed may later be upgraded by the
// follow-up worker.
const (
	StatusSubmitted   = "submitted"
	StatusConfirmed   = "confirmed"
	StatusFailed      = "failed"
	StatusUnconfirmed = "unconfirmed"
)

// ErrNotFound is returned when a lookup matches no submission.
var ErrNotFound = errors.New("submission not found")

// Store provides database operations for the submission journal.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate applies the journal schema. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Submission is one journal row. Signature is nil when the transaction was
// rejected before any endpoint accepted it; Slot is nil until confirmation.
type Submission struct {
	ID        uuid.UUID
	Signature *string
	Signer    string
	Endpoint  string
	Status    string
	Slot      *int64
	Attempts  int32
	Error     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateSubmissionParams contains the parameters for journaling a new
// submission.
type CreateSubmissionParams struct {
	Signature *string
	Signer    string
	Endpoint  string
	Status    string
	Attempts  int32
	Error     *string
}

const submissionColumns = `id, signature, signer, endpoint, status, slot, attempts, error, created_at, updated_at`

// CreateSubmission inserts a new journal row and returns it.
func (s *Store) CreateSubmission(ctx context.Context, params CreateSubmissionParams) (*Submission, error) {
	query := `
		INSERT INTO submissions (id, signature, signer, endpoint, status, attempts, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + submissionColumns

	row := s.pool.QueryRow(ctx, query,
		uuid.New(),
		pgtextFromStringPtr(params.Signature),
		params.Signer,
		params.Endpoint,
		params.Status,
		params.Attempts,
		pgtextFromStringPtr(params.Error),
	)
	return scanSubmission(row)
}

// UpdateSubmissionStatusParams contains the parameters for recording an
// outcome on an existing row.
type UpdateSubmissionStatusParams struct {
	ID       uuid.UUID
	Status   string
	Slot     *int64
	Attempts int32
	Error    *string
}

// UpdateSubmissionStatus records the outcome for a journal row.
func (s *Store) UpdateSubmissionStatus(ctx context.Context, params UpdateSubmissionStatusParams) (*Submission, error) {
	query := `
		UPDATE submissions
		SET status = $2, slot = $3, attempts = $4, error = $5, updated_at = now()
		WHERE id = $1
		RETURNING ` + submissionColumns

	row := s.pool.QueryRow(ctx, query,
		params.ID,
		params.Status,
		pgint8FromInt64Ptr(params.Slot),
		params.Attempts,
		pgtextFromStringPtr(params.Error),
	)
	return scanSubmission(row)
}

// GetSubmission retrieves a journal row by its id.
func (s *Store) GetSubmission(ctx context.Context, id uuid.UUID) (*Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1`
	return scanSubmission(s.pool.QueryRow(ctx, query, id))
}

// GetSubmissionBySignature retrieves a journal row by transaction signature.
func (s *Store) GetSubmissionBySignature(ctx context.Context, signature string) (*Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE signature = $1`
	return scanSubmission(s.pool.QueryRow(ctx, query, signature))
}

// ListSubmissions retrieves the most recent journal rows, newest first.
func (s *Store) ListSubmissions(ctx context.Context, limit int32) ([]*Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []*Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, sub)
	}
	return submissions, rows.Err()
}

// DeleteSubmissionsOlderThan deletes journal rows created before the given
// time. Returns the number of rows removed.
func (s *Store) DeleteSubmissionsOlderThan(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM submissions WHERE created_at < $1`,
		pgtype.Timestamptz{Time: before, Valid: true})
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSubmission(row pgx.Row) (*Submission, error) {
	var (
		sub       Submission
		signature pgtype.Text
		slot      pgtype.Int8
		errText   pgtype.Text
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&sub.ID,
		&signature,
		&sub.Signer,
		&sub.Endpoint,
		&sub.Status,
		&slot,
		&sub.Attempts,
		&errText,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sub.Signature = stringPtrFromPgtext(signature)
	sub.Slot = int64PtrFromPgint8(slot)
	sub.Error = stringPtrFromPgtext(errText)
	sub.CreatedAt = createdAt.Time
	sub.UpdatedAt = updatedAt.Time
	return &sub, nil
}

// Helper functions to convert between pgx types and domain types

func pgtextFromStringPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func stringPtrFromPgtext(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func pgint8FromInt64Ptr(i *int64) pgtype.Int8 {
	if i == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *i, Valid: true}
}

func int64PtrFromPgint8(i pgtype.Int8) *int64 {
	if !i.Valid {
		return nil
	}
	return &i.Int64
}
