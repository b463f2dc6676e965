package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransactionID(t *testing.T) {
	id := NewTransactionID()
	assert.True(t, strings.HasPrefix(id, "txn_"))
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, NewTransactionID())
}

func TestNewRechargeTransaction(t *testing.T) {
	txn, err := NewRechargeTransaction("wallet_1", 1, CNY(5000), "top up")
	require.NoError(t, err)

	assert.Equal(t, TransactionTypeRecharge, txn.Type)
	assert.Equal(t, TransactionStatusPending, txn.Status)
	assert.Equal(t, CNY(5000), txn.Amount)
	assert.True(t, txn.Fee.IsZero())
	require.NotNil(t, txn.ToUserID)
	assert.Equal(t, int64(1), *txn.ToUserID)
	assert.Nil(t, txn.CompleteTime)
}

func TestNewRechargeTransaction_ZeroAmount(t *testing.T) {
	_, err := NewRechargeTransaction("wallet_1", 1, Zero("CNY"), "top up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VAL_002")
}

func TestNewTransferTransaction(t *testing.T) {
	txn, err := NewTransferTransaction("wallet_1", 1, 2, CNY(10000), CNY(10), "lunch")
	require.NoError(t, err)

	assert.Equal(t, TransactionTypeTransferOut, txn.Type)
	assert.Equal(t, "Transfer to user 2", txn.Description)
	assert.Equal(t, "lunch", txn.Memo)
	assert.Equal(t, CNY(10), txn.Fee)
	assert.Equal(t, int64(10010), txn.TotalDeduction().Amount)
}

func TestNewTransferTransaction_FeeExceedsAmount(t *testing.T) {
	_, err := NewTransferTransaction("wallet_1", 1, 2, CNY(10), CNY(20), "")
	assert.Error(t, err)
}

func TestNewTransferInTransaction_CorrelatesID(t *testing.T) {
	txn, err := NewTransferInTransaction("wallet_2", 1, 2, CNY(10000), "txn_abc")
	require.NoError(t, err)
	assert.Equal(t, "txn_abc", txn.ID)
	assert.Equal(t, TransactionTypeTransferIn, txn.Type)
	assert.Equal(t, "Transfer received from user 1", txn.Description)
}

func TestValidateEntry_LengthLimits(t *testing.T) {
	longDesc := strings.Repeat("d", 201)
	_, err := NewRechargeTransaction("wallet_1", 1, CNY(100), longDesc)
	assert.Error(t, err)

	longMemo := strings.Repeat("m", 501)
	_, err = NewTransferTransaction("wallet_1", 1, 2, CNY(100), CNY(1), longMemo)
	assert.Error(t, err)

	// multibyte characters count as one
	cjk := strings.Repeat("转", 200)
	_, err = NewRechargeTransaction("wallet_1", 1, CNY(100), cjk)
	assert.NoError(t, err)
}

func TestTransaction_Complete(t *testing.T) {
	txn, err := NewRechargeTransaction("wallet_1", 1, CNY(100), "")
	require.NoError(t, err)

	done, err := txn.Complete()
	require.NoError(t, err)
	assert.Equal(t, TransactionStatusSuccess, done.Status)
	assert.NotNil(t, done.CompleteTime)
	assert.True(t, done.IsCompleted())
	assert.True(t, done.IsTerminal())

	// the original value is untouched
	assert.Equal(t, TransactionStatusPending, txn.Status)
}

func TestTransaction_Complete_Twice(t *testing.T) {
	txn, err := NewRechargeTransaction("wallet_1", 1, CNY(100), "")
	require.NoError(t, err)

	done, err := txn.Complete()
	require.NoError(t, err)

	_, err = done.Complete()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATE_005")
}

func TestTransaction_Fail(t *testing.T) {
	txn, err := NewWithdrawTransaction("wallet_1", 1, CNY(10000), CNY(200), "to bank")
	require.NoError(t, err)

	failed, err := txn.Fail("bank rejected")
	require.NoError(t, err)
	assert.Equal(t, TransactionStatusFailed, failed.Status)
	assert.Equal(t, "bank rejected", failed.FailureReason)
	assert.True(t, failed.IsFailed())

	_, err = failed.Cancel()
	assert.Error(t, err)
}

func TestTransaction_Cancel(t *testing.T) {
	txn, err := NewPaymentTransaction("wallet_1", 1, CNY(500), "order", "ext-1")
	require.NoError(t, err)
	assert.True(t, txn.CanCancel())

	cancelled, err := txn.Cancel()
	require.NoError(t, err)
	assert.Equal(t, TransactionStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.CanCancel())

	_, err = cancelled.Complete()
	assert.Error(t, err)
}
