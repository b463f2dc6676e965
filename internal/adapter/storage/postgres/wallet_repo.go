package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"user-wallet-service/internal/core/domain"
	"user-wallet-service/internal/core/ports"
	"user-wallet-service/pkg/apperror"

	"github.com/jackc/pgx/v5"
)

// ledgerWindow bounds how much history is hydrated into the aggregate.
// It must cover any local calendar day (for daily limit sums); PENDING
// entries are always loaded regardless of age.
const ledgerWindow = "48 hours"

// WalletRepo implements ports.WalletRepository. The aggregate is stored
// as a wallet row plus one row per ledger entry; Save writes both under
// the caller's transaction with an optimistic version check.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Create inserts a new wallet into the database.
func (r *WalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	snap := w.Snapshot()
	settings, err := json.Marshal(snap.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	query := `INSERT INTO wallets (wallet_id, user_id, balance, frozen_balance, currency, status, settings,
		payment_password_hash, create_time, update_time, last_transaction_time, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = r.pool.Exec(ctx, query,
		snap.WalletID, snap.UserID, snap.Balance.Amount, snap.FrozenBalance.Amount,
		snap.Balance.Currency, snap.Status, settings,
		snap.PaymentPasswordHash, snap.CreateTime, snap.UpdateTime,
		snap.LastTransactionTime, snap.Version,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByUserID fetches a wallet and its recent ledger by user ID.
func (r *WalletRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	query := `SELECT wallet_id, user_id, balance, frozen_balance, currency, status, settings,
		payment_password_hash, create_time, update_time, last_transaction_time, version
		FROM wallets WHERE user_id = $1`
	return r.getWallet(ctx, query, userID)
}

// GetByWalletID fetches a wallet and its recent ledger by wallet ID.
func (r *WalletRepo) GetByWalletID(ctx context.Context, walletID string) (*domain.Wallet, error) {
	query := `SELECT wallet_id, user_id, balance, frozen_balance, currency, status, settings,
		payment_password_hash, create_time, update_time, last_transaction_time, version
		FROM wallets WHERE wallet_id = $1`
	return r.getWallet(ctx, query, walletID)
}

func (r *WalletRepo) getWallet(ctx context.Context, query string, arg any) (*domain.Wallet, error) {
	var snap domain.WalletSnapshot
	var balance, frozen int64
	var currency string
	var settings []byte

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&snap.WalletID, &snap.UserID, &balance, &frozen, &currency, &snap.Status, &settings,
		&snap.PaymentPasswordHash, &snap.CreateTime, &snap.UpdateTime,
		&snap.LastTransactionTime, &snap.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	snap.Balance = domain.NewMoney(balance, currency)
	snap.FrozenBalance = domain.NewMoney(frozen, currency)
	if err := json.Unmarshal(settings, &snap.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	snap.Transactions, err = r.loadLedger(ctx, snap.WalletID)
	if err != nil {
		return nil, err
	}

	return domain.ReconstructWallet(snap)
}

func (r *WalletRepo) loadLedger(ctx context.Context, walletID string) ([]domain.Transaction, error) {
	query := fmt.Sprintf(`SELECT id, wallet_id, type, amount, fee, currency, from_user_id, to_user_id,
		description, memo, status, external_transaction_id, create_time, complete_time, failure_reason
		FROM transactions
		WHERE wallet_id = $1 AND (status = 'PENDING' OR create_time >= NOW() - INTERVAL '%s')
		ORDER BY create_time`, ledgerWindow)

	rows, err := r.pool.Query(ctx, query, walletID)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return txns, nil
}

// Save persists the aggregate under tx. The wallet row is updated only
// if the stored version still equals expectedVersion; ledger entries are
// upserted so completed and failed transitions stick.
func (r *WalletRepo) Save(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64) error {
	snap := w.Snapshot()
	settings, err := json.Marshal(snap.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	query := `UPDATE wallets SET balance = $1, frozen_balance = $2, status = $3, settings = $4,
		payment_password_hash = $5, update_time = $6, last_transaction_time = $7, version = $8
		WHERE wallet_id = $9 AND version = $10`

	tag, err := tx.Exec(ctx, query,
		snap.Balance.Amount, snap.FrozenBalance.Amount, snap.Status, settings,
		snap.PaymentPasswordHash, snap.UpdateTime, snap.LastTransactionTime,
		expectedVersion+1, snap.WalletID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrVersionConflict()
	}

	// Both legs of a transfer share one transaction ID, so the conflict
	// target includes wallet_id: each wallet keeps its own row.
	upsert := `INSERT INTO transactions (id, wallet_id, type, amount, fee, currency, from_user_id, to_user_id,
		description, memo, status, external_transaction_id, create_time, complete_time, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id, wallet_id) DO UPDATE SET
			status = EXCLUDED.status,
			complete_time = EXCLUDED.complete_time,
			failure_reason = EXCLUDED.failure_reason`

	for _, t := range snap.Transactions {
		_, err := tx.Exec(ctx, upsert,
			t.ID, t.WalletID, t.Type, t.Amount.Amount, t.Fee.Amount, t.Amount.Currency,
			t.FromUserID, t.ToUserID, t.Description, t.Memo, t.Status,
			t.ExternalTransactionID, t.CreateTime, t.CompleteTime, t.FailureReason,
		)
		if err != nil {
			return fmt.Errorf("upsert transaction %s: %w", t.ID, err)
		}
	}
	return nil
}

// ListTransactions fetches ledger entries with filtering and pagination.
func (r *WalletRepo) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
	args = append(args, params.WalletID)
	argIdx++

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIdx))
		args = append(args, *params.Type)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("create_time >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("create_time <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT id, wallet_id, type, amount, fee, currency, from_user_id, to_user_id,
		description, memo, status, external_transaction_id, create_time, complete_time, failure_reason
		FROM transactions %s ORDER BY create_time DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, total, nil
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var t domain.Transaction
	var amount, fee int64
	var currency string
	var memo, externalID, failureReason *string

	err := row.Scan(
		&t.ID, &t.WalletID, &t.Type, &amount, &fee, &currency,
		&t.FromUserID, &t.ToUserID, &t.Description, &memo, &t.Status,
		&externalID, &t.CreateTime, &t.CompleteTime, &failureReason,
	)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("scan transaction row: %w", err)
	}

	t.Amount = domain.NewMoney(amount, currency)
	t.Fee = domain.NewMoney(fee, currency)
	if memo != nil {
		t.Memo = *memo
	}
	if externalID != nil {
		t.ExternalTransactionID = *externalID
	}
	if failureReason != nil {
		t.FailureReason = *failureReason
	}
	return t, nil
}
