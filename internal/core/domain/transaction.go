package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"user-wallet-service/pkg/apperror"

	"github.com/google/uuid"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypeRecharge    TransactionType = "RECHARGE"
	TransactionTypeWithdraw    TransactionType = "WITHDRAW"
	TransactionTypeTransferOut TransactionType = "TRANSFER_OUT"
	TransactionTypeTransferIn  TransactionType = "TRANSFER_IN"
	TransactionTypePayment     TransactionType = "PAYMENT"
)

// TransactionStatus represents the lifecycle state of a transaction.
// PENDING is the only non-terminal state.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusSuccess   TransactionStatus = "SUCCESS"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

const (
	maxDescriptionLength = 200
	maxMemoLength        = 500
)

// Transaction is an immutable ledger entry. State transitions return a
// new value; a Transaction is never mutated in place.
type Transaction struct {
	ID                    string            `json:"id"`
	WalletID              string            `json:"wallet_id"`
	Type                  TransactionType   `json:"type"`
	Amount                Money             `json:"amount"`
	Fee                   Money             `json:"fee"`
	FromUserID            *int64            `json:"from_user_id,omitempty"`
	ToUserID              *int64            `json:"to_user_id,omitempty"`
	Description           string            `json:"description"`
	Memo                  string            `json:"memo,omitempty"`
	Status                TransactionStatus `json:"status"`
	ExternalTransactionID string            `json:"external_transaction_id,omitempty"`
	CreateTime            time.Time         `json:"create_time"`
	CompleteTime          *time.Time        `json:"complete_time,omitempty"`
	FailureReason         string            `json:"failure_reason,omitempty"`
}

// NewTransactionID generates an opaque transaction identifier.
func NewTransactionID() string {
	return "txn_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// NewRechargeTransaction creates a PENDING recharge entry crediting toUserID.
func NewRechargeTransaction(walletID string, toUserID int64, amount Money, description string) (Transaction, error) {
	if err := validateEntry(amount, Zero(amount.Currency), description, ""); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          NewTransactionID(),
		WalletID:    walletID,
		Type:        TransactionTypeRecharge,
		Amount:      amount,
		Fee:         Zero(amount.Currency),
		ToUserID:    &toUserID,
		Description: description,
		Status:      TransactionStatusPending,
		CreateTime:  time.Now(),
	}, nil
}

// NewTransferTransaction creates a PENDING outgoing transfer entry.
func NewTransferTransaction(walletID string, fromUserID, toUserID int64, amount, fee Money, memo string) (Transaction, error) {
	description := fmt.Sprintf("Transfer to user %d", toUserID)
	if err := validateEntry(amount, fee, description, memo); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          NewTransactionID(),
		WalletID:    walletID,
		Type:        TransactionTypeTransferOut,
		Amount:      amount,
		Fee:         fee,
		FromUserID:  &fromUserID,
		ToUserID:    &toUserID,
		Description: description,
		Memo:        memo,
		Status:      TransactionStatusPending,
		CreateTime:  time.Now(),
	}, nil
}

// NewTransferInTransaction creates a PENDING incoming transfer entry.
// transactionID correlates the entry with the sender's TRANSFER_OUT leg.
func NewTransferInTransaction(walletID string, fromUserID, toUserID int64, amount Money, transactionID string) (Transaction, error) {
	description := fmt.Sprintf("Transfer received from user %d", fromUserID)
	if err := validateEntry(amount, Zero(amount.Currency), description, ""); err != nil {
		return Transaction{}, err
	}
	if transactionID == "" {
		transactionID = NewTransactionID()
	}
	return Transaction{
		ID:          transactionID,
		WalletID:    walletID,
		Type:        TransactionTypeTransferIn,
		Amount:      amount,
		Fee:         Zero(amount.Currency),
		FromUserID:  &fromUserID,
		ToUserID:    &toUserID,
		Description: description,
		Status:      TransactionStatusPending,
		CreateTime:  time.Now(),
	}, nil
}

// NewWithdrawTransaction creates a PENDING withdraw entry debiting fromUserID.
func NewWithdrawTransaction(walletID string, fromUserID int64, amount, fee Money, description string) (Transaction, error) {
	if err := validateEntry(amount, fee, description, ""); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:          NewTransactionID(),
		WalletID:    walletID,
		Type:        TransactionTypeWithdraw,
		Amount:      amount,
		Fee:         fee,
		FromUserID:  &fromUserID,
		Description: description,
		Status:      TransactionStatusPending,
		CreateTime:  time.Now(),
	}, nil
}

// NewPaymentTransaction creates a PENDING payment entry. externalTransactionID
// is a correlation key for later reconciliation with the payment rail.
func NewPaymentTransaction(walletID string, fromUserID int64, amount Money, description, externalTransactionID string) (Transaction, error) {
	if err := validateEntry(amount, Zero(amount.Currency), description, ""); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		ID:                    NewTransactionID(),
		WalletID:              walletID,
		Type:                  TransactionTypePayment,
		Amount:                amount,
		Fee:                   Zero(amount.Currency),
		FromUserID:            &fromUserID,
		Description:           description,
		Status:                TransactionStatusPending,
		ExternalTransactionID: externalTransactionID,
		CreateTime:            time.Now(),
	}, nil
}

func validateEntry(amount, fee Money, description, memo string) error {
	if amount.IsZero() {
		return apperror.ErrInvalidAmount()
	}
	if !fee.SameCurrency(amount) {
		return apperror.ErrCurrencyMismatch(amount.Currency, fee.Currency)
	}
	if fee.Amount > amount.Amount {
		return apperror.Validation("Fee cannot exceed amount")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return apperror.Validation("Description exceeds 200 characters")
	}
	if utf8.RuneCountInString(memo) > maxMemoLength {
		return apperror.Validation("Memo exceeds 500 characters")
	}
	return nil
}

// Complete transitions PENDING -> SUCCESS.
func (t Transaction) Complete() (Transaction, error) {
	if t.Status != TransactionStatusPending {
		return Transaction{}, apperror.ErrInvalidStateTransition(string(t.Status))
	}
	now := time.Now()
	t.Status = TransactionStatusSuccess
	t.CompleteTime = &now
	return t, nil
}

// Fail transitions PENDING -> FAILED with the given reason.
func (t Transaction) Fail(reason string) (Transaction, error) {
	if t.Status != TransactionStatusPending {
		return Transaction{}, apperror.ErrInvalidStateTransition(string(t.Status))
	}
	now := time.Now()
	t.Status = TransactionStatusFailed
	t.CompleteTime = &now
	t.FailureReason = reason
	return t, nil
}

// Cancel transitions PENDING -> CANCELLED. It is a bookkeeping marker
// only; it does not reverse any balance change.
func (t Transaction) Cancel() (Transaction, error) {
	if t.Status != TransactionStatusPending {
		return Transaction{}, apperror.ErrInvalidStateTransition(string(t.Status))
	}
	now := time.Now()
	t.Status = TransactionStatusCancelled
	t.CompleteTime = &now
	return t, nil
}

// IsCompleted reports whether the transaction ended in SUCCESS.
func (t Transaction) IsCompleted() bool {
	return t.Status == TransactionStatusSuccess
}

// IsFailed reports whether the transaction ended in FAILED.
func (t Transaction) IsFailed() bool {
	return t.Status == TransactionStatusFailed
}

// CanCancel reports whether the transaction may still be cancelled.
func (t Transaction) CanCancel() bool {
	return t.Status == TransactionStatusPending
}

// IsTerminal reports whether the transaction reached a final state.
func (t Transaction) IsTerminal() bool {
	return t.Status != TransactionStatusPending
}

// TotalDeduction returns amount + fee, the full cost to the payer.
func (t Transaction) TotalDeduction() Money {
	return Money{Amount: t.Amount.Amount + t.Fee.Amount, Currency: t.Amount.Currency}
}
