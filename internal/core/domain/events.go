package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is published by the caller after the aggregate has been
// persisted. Operations return events instead of buffering them so the
// aggregate stays a pure function of (state, command).
type DomainEvent interface {
	EventID() string
	EventType() string
	OccurredOn() time.Time
}

// WalletRechargedEvent signals funds were credited via recharge.
type WalletRechargedEvent struct {
	ID            string    `json:"event_id"`
	WalletID      string    `json:"wallet_id"`
	UserID        int64     `json:"user_id"`
	Amount        Money     `json:"amount"`
	TransactionID string    `json:"transaction_id"`
	Time          time.Time `json:"occurred_on"`
}

// NewWalletRechargedEvent creates a recharge event.
func NewWalletRechargedEvent(walletID string, userID int64, amount Money, transactionID string) *WalletRechargedEvent {
	return &WalletRechargedEvent{
		ID:            uuid.New().String(),
		WalletID:      walletID,
		UserID:        userID,
		Amount:        amount,
		TransactionID: transactionID,
		Time:          time.Now(),
	}
}

func (e *WalletRechargedEvent) EventID() string       { return e.ID }
func (e *WalletRechargedEvent) EventType() string     { return "wallet.recharged" }
func (e *WalletRechargedEvent) OccurredOn() time.Time { return e.Time }

// WalletTransferredEvent signals the debit half of a transfer. The
// receiving wallet raises no event of its own.
type WalletTransferredEvent struct {
	ID            string    `json:"event_id"`
	WalletID      string    `json:"wallet_id"`
	FromUserID    int64     `json:"from_user_id"`
	ToUserID      int64     `json:"to_user_id"`
	Amount        Money     `json:"amount"`
	TransactionID string    `json:"transaction_id"`
	Time          time.Time `json:"occurred_on"`
}

// NewWalletTransferredEvent creates a transfer event.
func NewWalletTransferredEvent(walletID string, fromUserID, toUserID int64, amount Money, transactionID string) *WalletTransferredEvent {
	return &WalletTransferredEvent{
		ID:            uuid.New().String(),
		WalletID:      walletID,
		FromUserID:    fromUserID,
		ToUserID:      toUserID,
		Amount:        amount,
		TransactionID: transactionID,
		Time:          time.Now(),
	}
}

func (e *WalletTransferredEvent) EventID() string       { return e.ID }
func (e *WalletTransferredEvent) EventType() string     { return "wallet.transferred" }
func (e *WalletTransferredEvent) OccurredOn() time.Time { return e.Time }
