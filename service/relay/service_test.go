package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenarcade/relay/service/db"
	"github.com/tokenarcade/relay/service/events"
	"github.com/tokenarcade/relay/service/solana"
	"github.com/tokenarcade/relay/service/temporal"
)

const (
	testSigner    = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	testSignature = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"
)

type fakeSigner struct {
	configured bool
	signErr    error
	signCalls  int
}

func (f *fakeSigner) IsConfigured() bool { return f.configured }

func (f *fakeSigner) PublicKey() (string, bool) {
	if !f.configured {
		return "", false
	}
	return testSigner, true
}

func (f *fakeSigner) SignTransaction(raw []byte) ([]byte, error) {
	f.signCalls++
	if f.signErr != nil {
		return nil, f.signErr
	}
	return raw, nil
}

type fakeSubmitter struct {
	sig     string
	receipt *solana.Receipt
	err     error
	calls   int
}

func (f *fakeSubmitter) Submit(ctx context.Context, signedTx []byte) (string, *solana.Receipt, error) {
	f.calls++
	return f.sig, f.receipt, f.err
}

type fakeConfirmer struct {
	conf *solana.Confirmation
	err  error
}

func (f *fakeConfirmer) AwaitConfirmation(ctx context.Context, signature string) (*solana.Confirmation, error) {
	return f.conf, f.err
}

type fakeJournal struct {
	created []db.CreateSubmissionParams
	updated []db.UpdateSubmissionStatusParams
	lastID  uuid.UUID
}

func (f *fakeJournal) CreateSubmission(ctx context.Context, params db.CreateSubmissionParams) (*db.Submission, error) {
	f.created = append(f.created, params)
	f.lastID = uuid.New()
	return &db.Submission{
		ID:        f.lastID,
		Signature: params.Signature,
		Signer:    params.Signer,
		Endpoint:  params.Endpoint,
		Status:    params.Status,
		Attempts:  params.Attempts,
		Error:     params.Error,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

func (f *fakeJournal) UpdateSubmissionStatus(ctx context.Context, params db.UpdateSubmissionStatusParams) (*db.Submission, error) {
	f.updated = append(f.updated, params)
	return &db.Submission{
		ID:       params.ID,
		Status:   params.Status,
		Slot:     params.Slot,
		Attempts: params.Attempts,
		Error:    params.Error,
	}, nil
}

type testHarness struct {
	svc       *Service
	signer    *fakeSigner
	submitter *fakeSubmitter
	confirmer *fakeConfirmer
	journal   *fakeJournal
	publisher *events.MockPublisher
	starter   *temporal.MockStarter
}

func newHarness(submitter *fakeSubmitter, confirmer *fakeConfirmer) *testHarness {
	h := &testHarness{
		signer:    &fakeSigner{configured: true},
		submitter: submitter,
		confirmer: confirmer,
		journal:   &fakeJournal{},
		publisher: events.NewMockPublisher(),
		starter:   temporal.NewMockStarter(),
	}
	h.svc = NewService(Config{
		Signer:    h.signer,
		Submitter: h.submitter,
		Confirmer: h.confirmer,
		Journal:   h.journal,
		Publisher: h.publisher,
		Starter:   h.starter,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return h
}

func validTx() string {
	return base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})
}

func TestSubmitAndConfirm_Confirmed(t *testing.T) {
	h := newHarness(
		&fakeSubmitter{sig: testSignature, receipt: &solana.Receipt{Endpoint: "http://primary.test", Attempts: 1}},
		&fakeConfirmer{conf: &solana.Confirmation{Confirmed: true, Slot: 42}},
	)

	outcome := h.svc.SubmitAndConfirm(context.Background(), validTx())

	assert.Equal(t, testSignature, outcome.Signature)
	assert.True(t, outcome.Confirmed)
	assert.Equal(t, uint64(42), outcome.Slot)
	assert.Empty(t, outcome.Error)

	// One submitted row, updated to confirmed with the slot.
	require.Len(t, h.journal.created, 1)
	assert.Equal(t, db.StatusSubmitted, h.journal.created[0].Status)
	require.NotNil(t, h.journal.created[0].Signature)
	require.Len(t, h.journal.updated, 1)
	assert.Equal(t, db.StatusConfirmed, h.journal.updated[0].Status)
	require.NotNil(t, h.journal.updated[0].Slot)
	assert.Equal(t, int64(42), *h.journal.updated[0].Slot)

	// Lifecycle events: accepted, then terminal.
	published := h.publisher.GetPublishedEvents()
	require.Len(t, published, 2)
	assert.Equal(t, db.StatusSubmitted, published[0].Status)
	assert.Equal(t, db.StatusConfirmed, published[1].Status)

	assert.Empty(t, h.starter.Started())
}

func TestSubmitAndConfirm_WalletNotConfigured(t *testing.T) {
	h := newHarness(&fakeSubmitter{}, &fakeConfirmer{})
	h.signer.configured = false

	outcome := h.svc.SubmitAndConfirm(context.Background(), validTx())

	assert.Empty(t, outcome.Signature)
	assert.False(t, outcome.Confirmed)
	assert.Contains(t, outcome.Error, "wallet not configured")
	assert.Zero(t, h.submitter.calls)
}

func TestSubmitAndConfirm_InvalidBase64(t *testing.T) {
	h := newHarness(&fakeSubmitter{}, &fakeConfirmer{})

	outcome := h.svc.SubmitAndConfirm(context.Background(), "not!!base64")

	assert.Empty(t, outcome.Signature)
	assert.Contains(t, outcome.Error, "invalid transaction encoding")
	assert.Zero(t, h.signer.signCalls)
}

func TestSubmitAndConfirm_SubmitFailure(t *testing.T) {
	h := newHarness(
		&fakeSubmitter{receipt: &solana.Receipt{Attempts: 5}, err: errors.New("all endpoints exhausted: HTTP error: 429")},
		&fakeConfirmer{},
	)

	outcome := h.svc.SubmitAndConfirm(context.Background(), validTx())

	// An error outcome carries no signature.
	assert.Empty(t, outcome.Signature)
	assert.False(t, outcome.Confirmed)
	assert.Contains(t, outcome.Error, "all endpoints exhausted")

	// The failure is journaled as a signatureless row.
	require.Len(t, h.journal.created, 1)
	assert.Equal(t, db.StatusFailed, h.journal.created[0].Status)
	assert.Nil(t, h.journal.created[0].Signature)
	assert.Equal(t, int32(5), h.journal.created[0].Attempts)

	assert.Empty(t, h.starter.Started())
}

func TestSubmitAndConfirm_ChainFailure(t *testing.T) {
	chainErr := map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}
	h := newHarness(
		&fakeSubmitter{sig: testSignature, receipt: &solana.Receipt{Endpoint: "http://primary.test", Attempts: 1}},
		&fakeConfirmer{err: &solana.TransactionFailedError{Signature: testSignature, ChainErr: chainErr}},
	)

	outcome := h.svc.SubmitAndConfirm(context.Background(), validTx())

	assert.Empty(t, outcome.Signature)
	assert.False(t, outcome.Confirmed)
	assert.NotEmpty(t, outcome.Error)

	require.Len(t, h.journal.updated, 1)
	assert.Equal(t, db.StatusFailed, h.journal.updated[0].Status)
	require.NotNil(t, h.journal.updated[0].Error)
}

func TestSubmitAndConfirm_UnconfirmedStartsFollowUp(t *testing.T) {
	h := newHarness(
		&fakeSubmitter{sig: testSignature, receipt: &solana.Receipt{Endpoint: "http://primary.test", Attempts: 2}},
		&fakeConfirmer{conf: &solana.Confirmation{Confirmed: false}},
	)

	outcome := h.svc.SubmitAndConfirm(context.Background(), validTx())

	// Soft result: the signature is real, its fate is open.
	assert.Equal(t, testSignature, outcome.Signature)
	assert.False(t, outcome.Confirmed)
	assert.Empty(t, outcome.Error)

	require.Len(t, h.journal.updated, 1)
	assert.Equal(t, db.StatusUnconfirmed, h.journal.updated[0].Status)

	started := h.starter.Started()
	require.Len(t, started, 1)
	assert.Equal(t, testSignature, started[0].Signature)
	assert.Equal(t, h.journal.lastID.String(), started[0].SubmissionID)
	assert.Equal(t, int32(2), started[0].Attempts)
}

func TestSubmitAndConfirm_OptionalIntegrationsAbsent(t *testing.T) {
	svc := NewService(Config{
		Signer:    &fakeSigner{configured: true},
		Submitter: &fakeSubmitter{sig: testSignature, receipt: &solana.Receipt{Attempts: 1}},
		Confirmer: &fakeConfirmer{conf: &solana.Confirmation{Confirmed: true, Slot: 7}},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	outcome := svc.SubmitAndConfirm(context.Background(), validTx())

	assert.Equal(t, testSignature, outcome.Signature)
	assert.True(t, outcome.Confirmed)
}

func TestSubmitAndConfirm_SignFailure(t *testing.T) {
	h := newHarness(&fakeSubmitter{}, &fakeConfirmer{})
	h.signer.signErr = errors.New("transaction has no signature slots")

	outcome := h.svc.SubmitAndConfirm(context.Background(), validTx())

	assert.Empty(t, outcome.Signature)
	assert.Contains(t, outcome.Error, "failed to sign transaction")
	assert.Zero(t, h.submitter.calls)
}
