package temporal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/tokenarcade/relay/service/db"
)

const testFollowUpSignature = "5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7"

func newFollowUpEnv() *testsuite.TestWorkflowEnvironment {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ConfirmationFollowUpWorkflow)
	return env
}

func TestConfirmationFollowUpWorkflow_ConfirmedFirstRound(t *testing.T) {
	env := newFollowUpEnv()

	env.OnActivity(a.CheckSignatureStatus, mock.Anything, mock.Anything).
		Return(&CheckStatusResult{State: "confirmed", Slot: 42}, nil).Once()
	env.OnActivity(a.RecordFinalStatus, mock.Anything, mock.MatchedBy(func(input RecordFinalStatusInput) bool {
		return input.Status == db.StatusConfirmed && input.Slot != nil && *input.Slot == 42
	})).Return(nil).Once()

	env.ExecuteWorkflow(ConfirmationFollowUpWorkflow, FollowUpInput{
		Signature: testFollowUpSignature,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result FollowUpResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, db.StatusConfirmed, result.Status)
	assert.Equal(t, 1, result.Rounds)
	require.NotNil(t, result.Slot)
	assert.Equal(t, int64(42), *result.Slot)

	env.AssertExpectations(t)
}

func TestConfirmationFollowUpWorkflow_FinalizedCountsAsConfirmed(t *testing.T) {
	env := newFollowUpEnv()

	env.OnActivity(a.CheckSignatureStatus, mock.Anything, mock.Anything).
		Return(&CheckStatusResult{State: "finalized", Slot: 7}, nil).Once()
	env.OnActivity(a.RecordFinalStatus, mock.Anything, mock.Anything).Return(nil).Once()

	env.ExecuteWorkflow(ConfirmationFollowUpWorkflow, FollowUpInput{
		Signature: testFollowUpSignature,
	})

	require.True(t, env.IsWorkflowCompleted())
	var result FollowUpResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, db.StatusConfirmed, result.Status)
}

func TestConfirmationFollowUpWorkflow_ChainFailure(t *testing.T) {
	env := newFollowUpEnv()

	chainErr := `{"InstructionError":[0,"Custom"]}`
	env.OnActivity(a.CheckSignatureStatus, mock.Anything, mock.Anything).
		Return(&CheckStatusResult{State: "failed", ChainError: &chainErr}, nil).Once()
	env.OnActivity(a.RecordFinalStatus, mock.Anything, mock.MatchedBy(func(input RecordFinalStatusInput) bool {
		return input.Status == db.StatusFailed && input.Error != nil && *input.Error == chainErr
	})).Return(nil).Once()

	env.ExecuteWorkflow(ConfirmationFollowUpWorkflow, FollowUpInput{
		Signature: testFollowUpSignature,
	})

	require.True(t, env.IsWorkflowCompleted())
	var result FollowUpResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, db.StatusFailed, result.Status)
	require.NotNil(t, result.Error)
}

func TestConfirmationFollowUpWorkflow_UnconfirmedAfterBudget(t *testing.T) {
	env := newFollowUpEnv()

	env.OnActivity(a.CheckSignatureStatus, mock.Anything, mock.Anything).
		Return(&CheckStatusResult{State: "processing"}, nil).Times(3)
	env.OnActivity(a.RecordFinalStatus, mock.Anything, mock.MatchedBy(func(input RecordFinalStatusInput) bool {
		return input.Status == db.StatusUnconfirmed
	})).Return(nil).Once()

	env.ExecuteWorkflow(ConfirmationFollowUpWorkflow, FollowUpInput{
		Signature:     testFollowUpSignature,
		MaxRounds:     3,
		RoundInterval: time.Second,
	})

	require.True(t, env.IsWorkflowCompleted())
	var result FollowUpResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, db.StatusUnconfirmed, result.Status)
	assert.Equal(t, 3, result.Rounds)

	env.AssertExpectations(t)
}

func TestConfirmationFollowUpWorkflow_PendingThenConfirmed(t *testing.T) {
	env := newFollowUpEnv()

	env.OnActivity(a.CheckSignatureStatus, mock.Anything, mock.Anything).
		Return(&CheckStatusResult{State: "processing"}, nil).Once()
	env.OnActivity(a.CheckSignatureStatus, mock.Anything, mock.Anything).
		Return(&CheckStatusResult{State: "confirmed", Slot: 100}, nil).Once()
	env.OnActivity(a.RecordFinalStatus, mock.Anything, mock.Anything).Return(nil).Once()

	env.ExecuteWorkflow(ConfirmationFollowUpWorkflow, FollowUpInput{
		Signature: testFollowUpSignature,
	})

	require.True(t, env.IsWorkflowCompleted())
	var result FollowUpResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, db.StatusConfirmed, result.Status)
	assert.Equal(t, 2, result.Rounds)
}

func TestConfirmationFollowUpWorkflow_SweepFailureDoesNotAbort(t *testing.T) {
	env := newFollowUpEnv()

	// One full round of dead endpoints (the activity retry policy allows
	// three attempts), then an answer on the next round.
	env.OnActivity(a.CheckSignatureStatus, mock.Anything, mock.Anything).
		Return(nil, errors.New("all endpoints failed")).Times(3)
	env.OnActivity(a.CheckSignatureStatus, mock.Anything, mock.Anything).
		Return(&CheckStatusResult{State: "confirmed", Slot: 9}, nil).Once()
	env.OnActivity(a.RecordFinalStatus, mock.Anything, mock.Anything).Return(nil).Once()

	env.ExecuteWorkflow(ConfirmationFollowUpWorkflow, FollowUpInput{
		Signature: testFollowUpSignature,
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result FollowUpResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, db.StatusConfirmed, result.Status)
	assert.Equal(t, 2, result.Rounds)
}
