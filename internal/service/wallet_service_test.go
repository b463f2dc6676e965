package service

import (
	"context"
	"encoding/json"
	"testing"

	"user-wallet-service/internal/core/domain"
	"user-wallet-service/internal/core/ports"
	"user-wallet-service/internal/core/ports/mocks"
	"user-wallet-service/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type walletTestDeps struct {
	svc        *WalletServiceImpl
	walletRepo *mocks.MockWalletRepository
	transactor *mocks.MockDBTransactor
	idempCache *mocks.MockIdempotencyCache
	publisher  *mocks.MockEventPublisher
	hashSvc    *mocks.MockHashService
	ctrl       *gomock.Controller
}

func setupWalletService(t *testing.T) *walletTestDeps {
	ctrl := gomock.NewController(t)
	d := &walletTestDeps{
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		idempCache: mocks.NewMockIdempotencyCache(ctrl),
		publisher:  mocks.NewMockEventPublisher(ctrl),
		hashSvc:    mocks.NewMockHashService(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewWalletService(
		d.walletRepo, d.transactor, d.idempCache, d.publisher, d.hashSvc, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

type seedHasher struct{}

func (seedHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (seedHasher) Verify(password, encodedHash string) (bool, error) {
	return encodedHash == "hashed:"+password, nil
}

// fundedWallet builds an active CNY wallet with password requirements
// switched off so tests opt in explicitly.
func fundedWallet(t *testing.T, userID, balance int64) *domain.Wallet {
	t.Helper()
	w, err := domain.NewWallet(userID, "CNY")
	require.NoError(t, err)
	s := w.Settings()
	s.RequirePasswordForTransfer = false
	s.RequirePasswordForPayment = false
	s.RequirePasswordForWithdraw = false
	require.NoError(t, w.UpdateSettings(s))
	if balance > 0 {
		evt, err := w.Recharge(domain.CNY(balance), "seed")
		require.NoError(t, err)
		require.NoError(t, w.CompleteTransaction(evt.TransactionID))
	}
	return w
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

// ==================== CreateWallet ====================

func TestWalletService_CreateWallet_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(7)).Return(nil, nil)
	d.walletRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	w, err := d.svc.CreateWallet(ctx, 7, "CNY")
	require.NoError(t, err)
	assert.Equal(t, "wallet_7", w.WalletID())
	assert.Equal(t, domain.WalletStatusActive, w.Status())
}

func TestWalletService_CreateWallet_AlreadyExists(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(7)).Return(fundedWallet(t, 7, 0), nil)

	_, err := d.svc.CreateWallet(ctx, 7, "CNY")
	assertAppError(t, err, "RES_002")
}

// ==================== Recharge ====================

func TestWalletService_Recharge_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	wallet := fundedWallet(t, 1, 0)
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(wallet, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Save(ctx, tx, wallet, int64(0)).Return(nil)
	d.publisher.EXPECT().Publish(ctx, "wallet_1", gomock.Any()).Return(nil)

	txn, err := d.svc.Recharge(ctx, ports.RechargeRequest{
		UserID: 1, Amount: domain.CNY(10000), Description: "top up",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeRecharge, txn.Type)
	assert.Equal(t, domain.TransactionStatusSuccess, txn.Status)
	assert.Equal(t, domain.CNY(10000), wallet.Balance())
}

func TestWalletService_Recharge_IdempotentReplay(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	cached := domain.Transaction{
		ID:     "txn_cached",
		Type:   domain.TransactionTypeRecharge,
		Status: domain.TransactionStatusSuccess,
		Amount: domain.CNY(10000),
		Fee:    domain.Zero("CNY"),
	}
	data, err := json.Marshal(cached)
	require.NoError(t, err)

	d.idempCache.EXPECT().Get(ctx, "idem:wallet:1:req-1").Return(data, nil)

	txn, err := d.svc.Recharge(ctx, ports.RechargeRequest{
		UserID: 1, Amount: domain.CNY(10000), IdempotencyKey: "req-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "txn_cached", txn.ID)
}

func TestWalletService_Recharge_WalletNotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(nil, nil)

	_, err := d.svc.Recharge(ctx, ports.RechargeRequest{UserID: 1, Amount: domain.CNY(100)})
	assertAppError(t, err, "RES_001")
}

func TestWalletService_Recharge_RetriesOnVersionConflict(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).DoAndReturn(
		func(context.Context, int64) (*domain.Wallet, error) {
			return fundedWallet(t, 1, 0), nil
		}).Times(2)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(2)
	gomock.InOrder(
		d.walletRepo.EXPECT().Save(ctx, tx, gomock.Any(), int64(0)).Return(apperror.ErrVersionConflict()),
		d.walletRepo.EXPECT().Save(ctx, tx, gomock.Any(), int64(0)).Return(nil),
	)
	d.publisher.EXPECT().Publish(ctx, "wallet_1", gomock.Any()).Return(nil)

	txn, err := d.svc.Recharge(ctx, ports.RechargeRequest{UserID: 1, Amount: domain.CNY(100)})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusSuccess, txn.Status)
}

func TestWalletService_Recharge_ConflictExhausted(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).DoAndReturn(
		func(context.Context, int64) (*domain.Wallet, error) {
			return fundedWallet(t, 1, 0), nil
		}).Times(3)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(3)
	d.walletRepo.EXPECT().Save(ctx, tx, gomock.Any(), int64(0)).Return(apperror.ErrVersionConflict()).Times(3)

	_, err := d.svc.Recharge(ctx, ports.RechargeRequest{UserID: 1, Amount: domain.CNY(100)})
	assertAppError(t, err, "CONC_001")
}

// ==================== Transfer ====================

func TestWalletService_Transfer_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	sender := fundedWallet(t, 1, 100000)
	receiver := fundedWallet(t, 2, 0)
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(2)).Return(receiver, nil).Times(2)
	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(sender, nil).Times(2)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(3)
	d.walletRepo.EXPECT().Save(ctx, tx, gomock.Any(), gomock.Any()).Return(nil).Times(3)
	d.publisher.EXPECT().Publish(ctx, "wallet_1", gomock.Any()).Return(nil)

	txn, err := d.svc.Transfer(ctx, ports.TransferRequest{
		FromUserID: 1, ToUserID: 2, Amount: domain.CNY(10000), Memo: "lunch",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TransactionStatusSuccess, txn.Status)
	assert.Equal(t, domain.CNY(100000-10000-10), sender.Balance())
	assert.Equal(t, domain.CNY(10000), receiver.Balance())

	// the receiver's incoming leg shares the transaction ID and completed
	in, ok := receiver.FindTransaction(txn.ID)
	require.True(t, ok)
	assert.Equal(t, domain.TransactionTypeTransferIn, in.Type)
	assert.Equal(t, domain.TransactionStatusSuccess, in.Status)
}

func TestWalletService_Transfer_RecipientNotFound(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(2)).Return(nil, nil)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		FromUserID: 1, ToUserID: 2, Amount: domain.CNY(100),
	})
	assertAppError(t, err, "RES_001")
}

func TestWalletService_Transfer_WrongPassword(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	sender := fundedWallet(t, 1, 100000)
	s := sender.Settings()
	s.RequirePasswordForTransfer = true
	require.NoError(t, sender.UpdateSettings(s))
	require.NoError(t, sender.SetPaymentPassword("123456", seedHasher{}))

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(2)).Return(fundedWallet(t, 2, 0), nil)
	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(sender, nil)
	d.hashSvc.EXPECT().Verify("000000", "hashed:123456").Return(false, nil)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		FromUserID: 1, ToUserID: 2, Amount: domain.CNY(100), PaymentPassword: "000000",
	})
	assertAppError(t, err, "AUTH_002")
	assert.Equal(t, domain.CNY(100000), sender.Balance())
}

func TestWalletService_Transfer_CreditFails_SenderRefunded(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	sender := fundedWallet(t, 1, 100000)
	receiver := fundedWallet(t, 2, 0)
	require.NoError(t, receiver.FreezeWallet("risk review"))
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(2)).Return(receiver, nil).Times(2)
	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(sender, nil).Times(2)
	// debit save + compensation save; the credit fails before Begin
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(2)
	d.walletRepo.EXPECT().Save(ctx, tx, gomock.Any(), gomock.Any()).Return(nil).Times(2)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		FromUserID: 1, ToUserID: 2, Amount: domain.CNY(10000),
	})
	assertAppError(t, err, "STATE_001")

	// debit compensated, outgoing leg failed
	assert.Equal(t, domain.CNY(100000), sender.Balance())
	assert.True(t, receiver.Balance().IsZero())
	recent := sender.RecentTransactions(1)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.TransactionStatusFailed, recent[0].Status)
}

func TestWalletService_Transfer_InsufficientBalance(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	sender := fundedWallet(t, 1, 5000)

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(2)).Return(fundedWallet(t, 2, 0), nil)
	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(sender, nil)

	_, err := d.svc.Transfer(ctx, ports.TransferRequest{
		FromUserID: 1, ToUserID: 2, Amount: domain.CNY(5000),
	})
	assertAppError(t, err, "BAL_001")
}

// ==================== Withdraw ====================

func TestWalletService_Withdraw_StaysPending(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	wallet := fundedWallet(t, 1, 100000)
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(wallet, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Save(ctx, tx, wallet, int64(0)).Return(nil)

	txn, err := d.svc.Withdraw(ctx, ports.WithdrawRequest{
		UserID: 1, Amount: domain.CNY(50000), Description: "to bank",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, txn.Status)
	assert.Equal(t, domain.CNY(50200), wallet.FrozenBalance())
}

func TestWalletService_ConfirmWithdraw(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	wallet := fundedWallet(t, 1, 100000)
	pending, err := wallet.Withdraw(domain.CNY(50000), "")
	require.NoError(t, err)
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(wallet, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Save(ctx, tx, wallet, int64(0)).Return(nil)

	require.NoError(t, d.svc.ConfirmWithdraw(ctx, 1, pending.ID))
	assert.True(t, wallet.FrozenBalance().IsZero())
}

func TestWalletService_FailWithdraw(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	wallet := fundedWallet(t, 1, 100000)
	pending, err := wallet.Withdraw(domain.CNY(50000), "")
	require.NoError(t, err)
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(wallet, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Save(ctx, tx, wallet, int64(0)).Return(nil)

	require.NoError(t, d.svc.FailWithdraw(ctx, 1, pending.ID, "bank rejected"))
	assert.Equal(t, domain.CNY(100000), wallet.Balance())
	assert.True(t, wallet.FrozenBalance().IsZero())
}

// ==================== Pay ====================

func TestWalletService_Pay_Success(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	wallet := fundedWallet(t, 1, 100000)
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(wallet, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Save(ctx, tx, wallet, int64(0)).Return(nil)

	txn, err := d.svc.Pay(ctx, ports.PaymentRequest{
		UserID: 1, Amount: domain.CNY(30000), Description: "order 42", ExternalTransactionID: "ext-42",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusSuccess, txn.Status)
	assert.Equal(t, "ext-42", txn.ExternalTransactionID)
	assert.Equal(t, domain.CNY(70000), wallet.Balance())
}

// ==================== Admin & settings ====================

func TestWalletService_FreezeUnfreeze(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	wallet := fundedWallet(t, 1, 0)
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(wallet, nil).Times(2)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(2)
	d.walletRepo.EXPECT().Save(ctx, tx, wallet, int64(0)).Return(nil).Times(2)

	require.NoError(t, d.svc.FreezeWallet(ctx, 1, "suspicious activity"))
	assert.Equal(t, domain.WalletStatusFrozen, wallet.Status())

	require.NoError(t, d.svc.UnfreezeWallet(ctx, 1))
	assert.Equal(t, domain.WalletStatusActive, wallet.Status())
}

func TestWalletService_SetPaymentPassword(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()
	wallet := fundedWallet(t, 1, 0)
	tx := &mockTx{}

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(wallet, nil)
	d.hashSvc.EXPECT().Hash("123456").Return("encoded-hash", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().Save(ctx, tx, wallet, int64(0)).Return(nil)

	require.NoError(t, d.svc.SetPaymentPassword(ctx, 1, "123456"))
	assert.True(t, wallet.HasPaymentPassword())
}

func TestWalletService_SetPaymentPassword_BadFormat(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	d.walletRepo.EXPECT().GetByUserID(ctx, int64(1)).Return(fundedWallet(t, 1, 0), nil)

	err := d.svc.SetPaymentPassword(ctx, 1, "12ab")
	assertAppError(t, err, "VAL_004")
}

func TestWalletService_ListTransactions(t *testing.T) {
	d := setupWalletService(t)
	defer d.ctrl.Finish()
	ctx := context.Background()

	want := []domain.Transaction{{ID: "txn_1"}}
	d.walletRepo.EXPECT().ListTransactions(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
			assert.Equal(t, "wallet_1", params.WalletID)
			return want, 1, nil
		})

	txns, total, err := d.svc.ListTransactions(ctx, 1, ports.TransactionListParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, want, txns)
}
