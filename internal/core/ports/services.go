package ports

import (
	"context"
	"time"

	"user-wallet-service/internal/core/domain"
)

// HashService handles payment password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID int64) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID int64
}

// IdempotencyCache is the Redis-layer duplicate-request check.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EventPublisher delivers domain events to the message broker. key
// selects the partition so events of one wallet stay ordered.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event domain.DomainEvent) error
}

// --- Service Ports (Business Logic) ---

// WalletService defines the core wallet business logic.
type WalletService interface {
	CreateWallet(ctx context.Context, userID int64, currency string) (*domain.Wallet, error)
	GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	Recharge(ctx context.Context, req RechargeRequest) (*domain.Transaction, error)
	Transfer(ctx context.Context, req TransferRequest) (*domain.Transaction, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*domain.Transaction, error)
	Pay(ctx context.Context, req PaymentRequest) (*domain.Transaction, error)
	ConfirmWithdraw(ctx context.Context, userID int64, transactionID string) error
	FailWithdraw(ctx context.Context, userID int64, transactionID, reason string) error
	FreezeWallet(ctx context.Context, userID int64, reason string) error
	UnfreezeWallet(ctx context.Context, userID int64) error
	SetPaymentPassword(ctx context.Context, userID int64, password string) error
	UpdateSettings(ctx context.Context, userID int64, settings domain.WalletSettings) error
	ListTransactions(ctx context.Context, userID int64, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// RechargeRequest holds validated input for a recharge.
type RechargeRequest struct {
	UserID         int64
	Amount         domain.Money
	Description    string
	IdempotencyKey string
}

// TransferRequest holds validated input for a transfer.
type TransferRequest struct {
	FromUserID      int64
	ToUserID        int64
	Amount          domain.Money
	Memo            string
	PaymentPassword string
	IdempotencyKey  string
}

// WithdrawRequest holds validated input for a withdrawal.
type WithdrawRequest struct {
	UserID          int64
	Amount          domain.Money
	Description     string
	PaymentPassword string
	IdempotencyKey  string
}

// PaymentRequest holds validated input for a payment.
type PaymentRequest struct {
	UserID                int64
	Amount                domain.Money
	Description           string
	ExternalTransactionID string
	PaymentPassword       string
	IdempotencyKey        string
}
