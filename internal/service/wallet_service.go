package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"user-wallet-service/internal/core/domain"
	"user-wallet-service/internal/core/ports"
	"user-wallet-service/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	idempotencyTTL = 24 * time.Hour
	// maxSaveRetries bounds the optimistic-lock retry loop. Conflicts are
	// rare; if three attempts lose the race the client gets CONC_001.
	maxSaveRetries = 3
)

// WalletServiceImpl implements ports.WalletService. Every mutation loads
// the aggregate, applies the operation, and saves with a version check;
// on a version conflict the whole load-mutate-save cycle is retried.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	transactor ports.DBTransactor
	idempCache ports.IdempotencyCache
	publisher  ports.EventPublisher
	hashSvc    ports.HashService
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	idempCache ports.IdempotencyCache,
	publisher ports.EventPublisher,
	hashSvc ports.HashService,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		transactor: transactor,
		idempCache: idempCache,
		publisher:  publisher,
		hashSvc:    hashSvc,
		log:        log,
	}
}

// CreateWallet provisions a wallet for a user. One wallet per user.
func (s *WalletServiceImpl) CreateWallet(ctx context.Context, userID int64, currency string) (*domain.Wallet, error) {
	existing, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check existing wallet: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrWalletExists()
	}

	wallet, err := domain.NewWallet(userID, currency)
	if err != nil {
		return nil, err
	}
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.WalletID()).
		Int64("user_id", userID).
		Str("currency", currency).
		Msg("wallet created")

	return wallet, nil
}

// GetWallet loads a user's wallet.
func (s *WalletServiceImpl) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	return s.loadWallet(ctx, userID)
}

// Recharge credits funds. The ledger entry completes in the same unit of
// work and the recharge event is published after commit.
func (s *WalletServiceImpl) Recharge(ctx context.Context, req ports.RechargeRequest) (*domain.Transaction, error) {
	idemKey := idempotencyKey(req.UserID, req.IdempotencyKey)
	if cached := s.cachedTransaction(ctx, idemKey); cached != nil {
		return cached, nil
	}

	var evt *domain.WalletRechargedEvent
	var txnID string
	wallet, err := s.mutateWallet(ctx, req.UserID, func(w *domain.Wallet) error {
		e, err := w.Recharge(req.Amount, req.Description)
		if err != nil {
			return err
		}
		if err := w.CompleteTransaction(e.TransactionID); err != nil {
			return err
		}
		evt = e
		txnID = e.TransactionID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, wallet.WalletID(), evt)

	txn, _ := wallet.FindTransaction(txnID)
	s.cacheTransaction(ctx, idemKey, &txn)

	s.log.Info().
		Str("wallet_id", wallet.WalletID()).
		Str("txn_id", txnID).
		Int64("amount", req.Amount.Amount).
		Msg("recharge completed")

	return &txn, nil
}

// Transfer moves funds between two wallets as a two-step saga: the debit
// commits first, then the credit; if the credit cannot be applied the
// debit is compensated with a refund.
func (s *WalletServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	idemKey := idempotencyKey(req.FromUserID, req.IdempotencyKey)
	if cached := s.cachedTransaction(ctx, idemKey); cached != nil {
		return cached, nil
	}

	// The recipient must exist before any money moves.
	if _, err := s.loadWallet(ctx, req.ToUserID); err != nil {
		return nil, err
	}

	// Step 1: debit the sender. The outgoing entry stays PENDING.
	var evt *domain.WalletTransferredEvent
	sender, err := s.mutateWallet(ctx, req.FromUserID, func(w *domain.Wallet) error {
		if err := s.checkPassword(w, w.Settings().RequirePasswordForTransfer, req.PaymentPassword); err != nil {
			return err
		}
		e, err := w.Transfer(req.ToUserID, req.Amount, req.Memo)
		if err != nil {
			return err
		}
		evt = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	txnID := evt.TransactionID

	// Step 2: credit the receiver and complete its incoming entry.
	_, creditErr := s.mutateWallet(ctx, req.ToUserID, func(w *domain.Wallet) error {
		if err := w.ReceiveTransfer(req.FromUserID, req.Amount, txnID); err != nil {
			return err
		}
		return w.CompleteTransaction(txnID)
	})
	if creditErr != nil {
		return nil, s.compensateTransfer(ctx, req.FromUserID, txnID, creditErr)
	}

	// Step 3: mark the sender's outgoing entry SUCCESS.
	sender, err = s.mutateWallet(ctx, req.FromUserID, func(w *domain.Wallet) error {
		return w.CompleteTransaction(txnID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, sender.WalletID(), evt)

	txn, _ := sender.FindTransaction(txnID)
	s.cacheTransaction(ctx, idemKey, &txn)

	s.log.Info().
		Str("txn_id", txnID).
		Int64("from_user_id", req.FromUserID).
		Int64("to_user_id", req.ToUserID).
		Int64("amount", req.Amount.Amount).
		Msg("transfer completed")

	return &txn, nil
}

// compensateTransfer refunds a committed debit whose credit leg failed.
func (s *WalletServiceImpl) compensateTransfer(ctx context.Context, fromUserID int64, txnID string, creditErr error) error {
	_, err := s.mutateWallet(ctx, fromUserID, func(w *domain.Wallet) error {
		return w.RefundTransfer(txnID, creditErr.Error())
	})
	if err != nil {
		// Refund could not be applied; the debit stays PENDING for manual
		// reconciliation.
		s.log.Error().Err(err).
			Str("txn_id", txnID).
			Int64("from_user_id", fromUserID).
			Msg("transfer compensation failed, debit left pending")
		return apperror.InternalError(fmt.Errorf("transfer compensation: %w", err))
	}

	s.log.Warn().Err(creditErr).
		Str("txn_id", txnID).
		Int64("from_user_id", fromUserID).
		Msg("transfer credit failed, sender refunded")

	return creditErr
}

// Withdraw places a hold on the funds. The entry stays PENDING until
// ConfirmWithdraw or FailWithdraw settles it.
func (s *WalletServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*domain.Transaction, error) {
	idemKey := idempotencyKey(req.UserID, req.IdempotencyKey)
	if cached := s.cachedTransaction(ctx, idemKey); cached != nil {
		return cached, nil
	}

	var txn domain.Transaction
	wallet, err := s.mutateWallet(ctx, req.UserID, func(w *domain.Wallet) error {
		if err := s.checkPassword(w, w.Settings().RequirePasswordForWithdraw, req.PaymentPassword); err != nil {
			return err
		}
		t, err := w.Withdraw(req.Amount, req.Description)
		if err != nil {
			return err
		}
		txn = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cacheTransaction(ctx, idemKey, &txn)

	s.log.Info().
		Str("wallet_id", wallet.WalletID()).
		Str("txn_id", txn.ID).
		Int64("amount", req.Amount.Amount).
		Msg("withdrawal pending settlement")

	return &txn, nil
}

// Pay debits the wallet for a purchase and completes the entry in the
// same unit of work.
func (s *WalletServiceImpl) Pay(ctx context.Context, req ports.PaymentRequest) (*domain.Transaction, error) {
	idemKey := idempotencyKey(req.UserID, req.IdempotencyKey)
	if cached := s.cachedTransaction(ctx, idemKey); cached != nil {
		return cached, nil
	}

	var txnID string
	wallet, err := s.mutateWallet(ctx, req.UserID, func(w *domain.Wallet) error {
		if err := s.checkPassword(w, w.Settings().RequirePasswordForPayment, req.PaymentPassword); err != nil {
			return err
		}
		t, err := w.Payment(req.Amount, req.Description, req.ExternalTransactionID)
		if err != nil {
			return err
		}
		txnID = t.ID
		return w.CompleteTransaction(t.ID)
	})
	if err != nil {
		return nil, err
	}

	txn, _ := wallet.FindTransaction(txnID)
	s.cacheTransaction(ctx, idemKey, &txn)

	s.log.Info().
		Str("wallet_id", wallet.WalletID()).
		Str("txn_id", txnID).
		Int64("amount", req.Amount.Amount).
		Msg("payment completed")

	return &txn, nil
}

// ConfirmWithdraw settles a pending withdrawal after the payout cleared.
func (s *WalletServiceImpl) ConfirmWithdraw(ctx context.Context, userID int64, transactionID string) error {
	_, err := s.mutateWallet(ctx, userID, func(w *domain.Wallet) error {
		return w.ConfirmWithdraw(transactionID)
	})
	if err == nil {
		s.log.Info().Str("txn_id", transactionID).Int64("user_id", userID).Msg("withdrawal confirmed")
	}
	return err
}

// FailWithdraw reverses a pending withdrawal after the payout was rejected.
func (s *WalletServiceImpl) FailWithdraw(ctx context.Context, userID int64, transactionID, reason string) error {
	_, err := s.mutateWallet(ctx, userID, func(w *domain.Wallet) error {
		return w.FailWithdraw(transactionID, reason)
	})
	if err == nil {
		s.log.Info().Str("txn_id", transactionID).Int64("user_id", userID).Str("reason", reason).Msg("withdrawal failed, funds returned")
	}
	return err
}

// FreezeWallet blocks all operations on the wallet.
func (s *WalletServiceImpl) FreezeWallet(ctx context.Context, userID int64, reason string) error {
	_, err := s.mutateWallet(ctx, userID, func(w *domain.Wallet) error {
		return w.FreezeWallet(reason)
	})
	if err == nil {
		s.log.Warn().Int64("user_id", userID).Str("reason", reason).Msg("wallet frozen")
	}
	return err
}

// UnfreezeWallet reactivates a frozen wallet.
func (s *WalletServiceImpl) UnfreezeWallet(ctx context.Context, userID int64) error {
	_, err := s.mutateWallet(ctx, userID, func(w *domain.Wallet) error {
		return w.UnfreezeWallet()
	})
	if err == nil {
		s.log.Info().Int64("user_id", userID).Msg("wallet unfrozen")
	}
	return err
}

// SetPaymentPassword sets or replaces the wallet's payment password.
func (s *WalletServiceImpl) SetPaymentPassword(ctx context.Context, userID int64, password string) error {
	_, err := s.mutateWallet(ctx, userID, func(w *domain.Wallet) error {
		return w.SetPaymentPassword(password, s.hashSvc)
	})
	return err
}

// UpdateSettings replaces the wallet policy.
func (s *WalletServiceImpl) UpdateSettings(ctx context.Context, userID int64, settings domain.WalletSettings) error {
	_, err := s.mutateWallet(ctx, userID, func(w *domain.Wallet) error {
		return w.UpdateSettings(settings)
	})
	return err
}

// ListTransactions pages through the user's ledger.
func (s *WalletServiceImpl) ListTransactions(ctx context.Context, userID int64, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	params.WalletID = domain.WalletIDForUser(userID)
	txns, total, err := s.walletRepo.ListTransactions(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, total, nil
}

// ---- Internals ----

func (s *WalletServiceImpl) loadWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("load wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("Wallet")
	}
	return wallet, nil
}

// mutateWallet runs the load-mutate-save cycle with optimistic locking.
// mutate must be idempotent in memory: it is re-run against a fresh
// aggregate on every version conflict.
func (s *WalletServiceImpl) mutateWallet(ctx context.Context, userID int64, mutate func(w *domain.Wallet) error) (*domain.Wallet, error) {
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		wallet, err := s.loadWallet(ctx, userID)
		if err != nil {
			return nil, err
		}
		expected := wallet.Version()

		if err := mutate(wallet); err != nil {
			return nil, err
		}

		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
		}

		if err := s.walletRepo.Save(ctx, dbTx, wallet, expected); err != nil {
			_ = dbTx.Rollback(ctx)
			if isVersionConflict(err) {
				s.log.Debug().
					Int64("user_id", userID).
					Int("attempt", attempt+1).
					Msg("version conflict, retrying")
				continue
			}
			return nil, err
		}

		if err := dbTx.Commit(ctx); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
		}
		return wallet, nil
	}
	return nil, apperror.ErrVersionConflict()
}

func (s *WalletServiceImpl) checkPassword(w *domain.Wallet, required bool, password string) error {
	if !required {
		return nil
	}
	ok, err := w.VerifyPaymentPassword(password, s.hashSvc)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrWrongPaymentPassword()
	}
	return nil
}

// publish delivers an event after commit. Delivery is best-effort; a
// broker outage must not fail a committed operation.
func (s *WalletServiceImpl) publish(ctx context.Context, walletID string, event domain.DomainEvent) {
	if err := s.publisher.Publish(ctx, walletID, event); err != nil {
		s.log.Warn().Err(err).
			Str("wallet_id", walletID).
			Str("event_type", event.EventType()).
			Msg("event publish failed")
	}
}

func idempotencyKey(userID int64, key string) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("idem:wallet:%d:%s", userID, key)
}

// cachedTransaction returns the response of an already-processed request.
func (s *WalletServiceImpl) cachedTransaction(ctx context.Context, key string) *domain.Transaction {
	if key == "" {
		return nil
	}
	data, err := s.idempCache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("idempotency check failed, treating as new request")
		return nil
	}
	if data == nil {
		return nil
	}
	txn := &domain.Transaction{}
	if err := json.Unmarshal(data, txn); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("corrupt idempotency entry, treating as new request")
		return nil
	}
	return txn
}

func (s *WalletServiceImpl) cacheTransaction(ctx context.Context, key string, txn *domain.Transaction) {
	if key == "" {
		return
	}
	data, err := json.Marshal(txn)
	if err != nil {
		return
	}
	if err := s.idempCache.Set(ctx, key, data, idempotencyTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache idempotency entry")
	}
}

func isVersionConflict(err error) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == "CONC_001"
}
