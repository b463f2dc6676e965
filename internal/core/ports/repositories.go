package ports

import (
	"context"

	"user-wallet-service/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallet aggregates.
// Save runs inside a transaction block so the wallet row and its ledger
// entries commit together.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error)
	GetByWalletID(ctx context.Context, walletID string) (*domain.Wallet, error)
	// Save persists the aggregate if the stored version still equals
	// expectedVersion and bumps it by one. Returns a CONC_001 error when
	// another writer got there first.
	Save(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet, expectedVersion int64) error
	// ListTransactions pages through a wallet's ledger without loading
	// the full aggregate. Returns the page and the total count.
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.Transaction, int64, error)
}

// TransactionListParams holds filter + pagination for listing ledger entries.
type TransactionListParams struct {
	WalletID string
	Type     *domain.TransactionType
	Status   *domain.TransactionStatus
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
