package domain

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"user-wallet-service/pkg/apperror"
)

// WalletStatus controls which operations a wallet may perform.
type WalletStatus string

const (
	WalletStatusActive      WalletStatus = "ACTIVE"
	WalletStatusFrozen      WalletStatus = "FROZEN"
	WalletStatusRestricted  WalletStatus = "RESTRICTED"
	WalletStatusClosed      WalletStatus = "CLOSED"
	WalletStatusUnderReview WalletStatus = "UNDER_REVIEW"
)

// CanSend reports whether outgoing movements (transfer, payment) are allowed.
func (s WalletStatus) CanSend() bool {
	return s == WalletStatusActive
}

// CanReceive reports whether incoming transfers are allowed. Restricted
// wallets can still receive funds.
func (s WalletStatus) CanReceive() bool {
	return s == WalletStatusActive || s == WalletStatusRestricted
}

// CanRecharge reports whether the wallet accepts recharges.
func (s WalletStatus) CanRecharge() bool {
	return s == WalletStatusActive || s == WalletStatusRestricted
}

// CanWithdraw reports whether withdrawals are allowed.
func (s WalletStatus) CanWithdraw() bool {
	return s == WalletStatusActive
}

// PasswordHasher hashes and verifies payment passwords. The concrete
// algorithm lives in the service layer.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

var paymentPasswordPattern = regexp.MustCompile(`^[0-9]{6}$`)

const (
	transferFeeRate     = 0.001
	transferFeeMinUnits = 1   // 0.01 in the wallet currency
	transferFeeMaxUnits = 500 // 5.00
	withdrawFeeUnits    = 200 // 2.00 flat
)

// Wallet is the consistency boundary for a user's funds. All invariants
// (balance sufficiency, limits, status rules) are enforced here; fields
// are unexported so every mutation goes through an operation method.
//
// Operations validate everything up front and mutate only on success,
// so a returned error means the wallet is unchanged.
type Wallet struct {
	walletID            string
	userID              int64
	balance             Money
	frozenBalance       Money
	status              WalletStatus
	settings            WalletSettings
	transactions        []Transaction
	paymentPasswordHash string
	createTime          time.Time
	updateTime          time.Time
	lastTransactionTime *time.Time
	version             int64

	clock func() time.Time
}

// WalletIDForUser derives the deterministic wallet identifier for a user.
func WalletIDForUser(userID int64) string {
	return fmt.Sprintf("wallet_%d", userID)
}

// NewWallet creates an active, empty wallet with default settings
// denominated in the given currency.
func NewWallet(userID int64, currency string) (*Wallet, error) {
	if userID <= 0 {
		return nil, apperror.Validation("User ID must be positive")
	}
	if currency == "" {
		return nil, apperror.Validation("Currency is required")
	}
	now := time.Now()
	return &Wallet{
		walletID:      WalletIDForUser(userID),
		userID:        userID,
		balance:       Zero(currency),
		frozenBalance: Zero(currency),
		status:        WalletStatusActive,
		settings:      DefaultSettingsFor(currency),
		createTime:    now,
		updateTime:    now,
		version:       0,
		clock:         time.Now,
	}, nil
}

// WalletSnapshot is the persistence view of a wallet. It carries no
// behavior; ReconstructWallet turns it back into an aggregate.
type WalletSnapshot struct {
	WalletID            string
	UserID              int64
	Balance             Money
	FrozenBalance       Money
	Status              WalletStatus
	Settings            WalletSettings
	Transactions        []Transaction
	PaymentPasswordHash string
	CreateTime          time.Time
	UpdateTime          time.Time
	LastTransactionTime *time.Time
	Version             int64
}

// ReconstructWallet rebuilds an aggregate from persisted state.
func ReconstructWallet(s WalletSnapshot) (*Wallet, error) {
	if s.WalletID == "" {
		return nil, apperror.Validation("Wallet ID is required")
	}
	if !s.Balance.SameCurrency(s.FrozenBalance) {
		return nil, apperror.ErrCurrencyMismatch(s.Balance.Currency, s.FrozenBalance.Currency)
	}
	txns := make([]Transaction, len(s.Transactions))
	copy(txns, s.Transactions)
	return &Wallet{
		walletID:            s.WalletID,
		userID:              s.UserID,
		balance:             s.Balance,
		frozenBalance:       s.FrozenBalance,
		status:              s.Status,
		settings:            s.Settings,
		transactions:        txns,
		paymentPasswordHash: s.PaymentPasswordHash,
		createTime:          s.CreateTime,
		updateTime:          s.UpdateTime,
		lastTransactionTime: s.LastTransactionTime,
		version:             s.Version,
		clock:               time.Now,
	}, nil
}

// Snapshot returns a persistence view of the current state.
func (w *Wallet) Snapshot() WalletSnapshot {
	txns := make([]Transaction, len(w.transactions))
	copy(txns, w.transactions)
	return WalletSnapshot{
		WalletID:            w.walletID,
		UserID:              w.userID,
		Balance:             w.balance,
		FrozenBalance:       w.frozenBalance,
		Status:              w.status,
		Settings:            w.settings,
		Transactions:        txns,
		PaymentPasswordHash: w.paymentPasswordHash,
		CreateTime:          w.createTime,
		UpdateTime:          w.updateTime,
		LastTransactionTime: w.lastTransactionTime,
		Version:             w.version,
	}
}

// ---- Accessors ----

func (w *Wallet) WalletID() string           { return w.walletID }
func (w *Wallet) UserID() int64              { return w.userID }
func (w *Wallet) Balance() Money             { return w.balance }
func (w *Wallet) FrozenBalance() Money       { return w.frozenBalance }
func (w *Wallet) Status() WalletStatus       { return w.status }
func (w *Wallet) Settings() WalletSettings   { return w.settings }
func (w *Wallet) Currency() string           { return w.balance.Currency }
func (w *Wallet) CreateTime() time.Time      { return w.createTime }
func (w *Wallet) UpdateTime() time.Time      { return w.updateTime }
func (w *Wallet) Version() int64             { return w.version }
func (w *Wallet) HasPaymentPassword() bool   { return w.paymentPasswordHash != "" }

// LastTransactionTime returns the time of the most recent operation, or
// nil if the wallet has never transacted.
func (w *Wallet) LastTransactionTime() *time.Time { return w.lastTransactionTime }

// AvailableBalance is balance minus frozen funds.
func (w *Wallet) AvailableBalance() Money {
	return Money{Amount: w.balance.Amount - w.frozenBalance.Amount, Currency: w.balance.Currency}
}

// ---- Operations ----

// Recharge credits the wallet and returns the event to publish after the
// state has been persisted.
func (w *Wallet) Recharge(amount Money, description string) (*WalletRechargedEvent, error) {
	if !w.status.CanRecharge() {
		return nil, apperror.ErrWalletStatus("recharge", string(w.status))
	}
	if err := w.validateAmount(amount); err != nil {
		return nil, err
	}
	txn, err := NewRechargeTransaction(w.walletID, w.userID, amount, description)
	if err != nil {
		return nil, err
	}

	w.balance.Amount += amount.Amount
	w.record(txn)
	return NewWalletRechargedEvent(w.walletID, w.userID, amount, txn.ID), nil
}

// Transfer debits amount plus fee for an outgoing transfer to toUserID.
// The credit to the receiving wallet is the caller's responsibility; on
// a failed credit, RefundTransfer compensates.
func (w *Wallet) Transfer(toUserID int64, amount Money, memo string) (*WalletTransferredEvent, error) {
	if !w.status.CanSend() {
		return nil, apperror.ErrWalletStatus("transfer", string(w.status))
	}
	if !w.settings.EnableTransfer {
		return nil, apperror.ErrFeatureDisabled("Transfer")
	}
	if err := w.validateAmount(amount); err != nil {
		return nil, err
	}
	if toUserID == w.userID {
		return nil, apperror.Validation("Cannot transfer to yourself")
	}
	if !w.settings.AllowsTransfer(amount) {
		return nil, apperror.ErrSingleLimitExceeded("transfer")
	}
	if err := w.checkDailyLimit(TransactionTypeTransferOut, amount, w.settings.DailyTransferLimit, "transfer"); err != nil {
		return nil, err
	}
	fee := w.transferFee(amount)
	total := Money{Amount: amount.Amount + fee.Amount, Currency: amount.Currency}
	if err := w.checkSufficient(total); err != nil {
		return nil, err
	}
	txn, err := NewTransferTransaction(w.walletID, w.userID, toUserID, amount, fee, memo)
	if err != nil {
		return nil, err
	}

	w.balance.Amount -= total.Amount
	w.record(txn)
	return NewWalletTransferredEvent(w.walletID, w.userID, toUserID, amount, txn.ID), nil
}

// ReceiveTransfer credits an incoming transfer. transactionID correlates
// the entry with the sender's outgoing leg; the sender's event already
// covers the movement, so no event is raised here.
func (w *Wallet) ReceiveTransfer(fromUserID int64, amount Money, transactionID string) error {
	if !w.status.CanReceive() {
		return apperror.ErrWalletStatus("receiving transfers", string(w.status))
	}
	if err := w.validateAmount(amount); err != nil {
		return err
	}
	txn, err := NewTransferInTransaction(w.walletID, fromUserID, w.userID, amount, transactionID)
	if err != nil {
		return err
	}

	w.balance.Amount += amount.Amount
	w.record(txn)
	return nil
}

// Withdraw moves amount plus a flat fee into frozen balance and returns
// the PENDING transaction. ConfirmWithdraw or FailWithdraw settles it.
func (w *Wallet) Withdraw(amount Money, description string) (Transaction, error) {
	if !w.status.CanWithdraw() {
		return Transaction{}, apperror.ErrWalletStatus("withdraw", string(w.status))
	}
	if !w.settings.EnableWithdraw {
		return Transaction{}, apperror.ErrFeatureDisabled("Withdraw")
	}
	if err := w.validateAmount(amount); err != nil {
		return Transaction{}, err
	}
	if !w.settings.AllowsWithdraw(amount) {
		return Transaction{}, apperror.ErrSingleLimitExceeded("withdraw")
	}
	if err := w.checkDailyLimit(TransactionTypeWithdraw, amount, w.settings.DailyWithdrawLimit, "withdraw"); err != nil {
		return Transaction{}, err
	}
	fee := NewMoney(withdrawFeeUnits, amount.Currency)
	total := Money{Amount: amount.Amount + fee.Amount, Currency: amount.Currency}
	if err := w.checkSufficient(total); err != nil {
		return Transaction{}, err
	}
	txn, err := NewWithdrawTransaction(w.walletID, w.userID, amount, fee, description)
	if err != nil {
		return Transaction{}, err
	}

	w.balance.Amount -= total.Amount
	w.frozenBalance.Amount += total.Amount
	w.record(txn)
	return txn, nil
}

// Payment debits the wallet for a purchase. Payments carry no fee.
func (w *Wallet) Payment(amount Money, description, externalTransactionID string) (Transaction, error) {
	if !w.status.CanSend() {
		return Transaction{}, apperror.ErrWalletStatus("payment", string(w.status))
	}
	if !w.settings.EnablePayment {
		return Transaction{}, apperror.ErrFeatureDisabled("Payment")
	}
	if err := w.validateAmount(amount); err != nil {
		return Transaction{}, err
	}
	if !w.settings.AllowsPayment(amount) {
		return Transaction{}, apperror.ErrSingleLimitExceeded("payment")
	}
	if err := w.checkDailyLimit(TransactionTypePayment, amount, w.settings.DailyPaymentLimit, "payment"); err != nil {
		return Transaction{}, err
	}
	if err := w.checkSufficient(amount); err != nil {
		return Transaction{}, err
	}
	txn, err := NewPaymentTransaction(w.walletID, w.userID, amount, description, externalTransactionID)
	if err != nil {
		return Transaction{}, err
	}

	w.balance.Amount -= amount.Amount
	w.record(txn)
	return txn, nil
}

// ---- Status ----

// FreezeWallet moves the wallet to FROZEN. reason is recorded by the
// caller's audit trail, not here.
func (w *Wallet) FreezeWallet(reason string) error {
	if w.status == WalletStatusFrozen {
		return apperror.ErrWalletAlreadyFrozen()
	}
	if w.status == WalletStatusClosed {
		return apperror.ErrWalletStatus("freeze", string(w.status))
	}
	if reason == "" {
		return apperror.Validation("Freeze reason is required")
	}
	w.status = WalletStatusFrozen
	w.touch()
	return nil
}

// UnfreezeWallet returns a frozen wallet to ACTIVE.
func (w *Wallet) UnfreezeWallet() error {
	if w.status != WalletStatusFrozen {
		return apperror.ErrWalletNotFrozen()
	}
	w.status = WalletStatusActive
	w.touch()
	return nil
}

// ---- Password ----

// SetPaymentPassword hashes and stores a 6-digit payment password.
func (w *Wallet) SetPaymentPassword(password string, hasher PasswordHasher) error {
	if !paymentPasswordPattern.MatchString(password) {
		return apperror.ErrInvalidPaymentPassword()
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return apperror.InternalError(err)
	}
	w.paymentPasswordHash = hash
	w.touch()
	return nil
}

// VerifyPaymentPassword checks a candidate password against the stored
// hash. Fails if no password has been set.
func (w *Wallet) VerifyPaymentPassword(password string, hasher PasswordHasher) (bool, error) {
	if w.paymentPasswordHash == "" {
		return false, apperror.ErrPaymentPasswordNotSet()
	}
	return hasher.Verify(password, w.paymentPasswordHash)
}

// UpdateSettings replaces the wallet policy after validating it.
func (w *Wallet) UpdateSettings(s WalletSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	w.settings = s
	w.touch()
	return nil
}

// ---- Ledger transitions ----

// CompleteTransaction marks a PENDING transaction as SUCCESS. Balances
// were already adjusted when the transaction was created.
func (w *Wallet) CompleteTransaction(transactionID string) error {
	i, err := w.indexOf(transactionID)
	if err != nil {
		return err
	}
	updated, err := w.transactions[i].Complete()
	if err != nil {
		return err
	}
	w.transactions[i] = updated
	w.touch()
	return nil
}

// FailTransaction marks a PENDING transaction as FAILED. It records the
// outcome only; use FailWithdraw or RefundTransfer when funds must move
// back.
func (w *Wallet) FailTransaction(transactionID, reason string) error {
	i, err := w.indexOf(transactionID)
	if err != nil {
		return err
	}
	updated, err := w.transactions[i].Fail(reason)
	if err != nil {
		return err
	}
	w.transactions[i] = updated
	w.touch()
	return nil
}

// CancelTransaction marks a PENDING transaction as CANCELLED without
// touching balances.
func (w *Wallet) CancelTransaction(transactionID string) error {
	i, err := w.indexOf(transactionID)
	if err != nil {
		return err
	}
	updated, err := w.transactions[i].Cancel()
	if err != nil {
		return err
	}
	w.transactions[i] = updated
	w.touch()
	return nil
}

// ConfirmWithdraw settles a pending withdrawal: the frozen hold is
// released and the transaction completes.
func (w *Wallet) ConfirmWithdraw(transactionID string) error {
	i, err := w.indexOf(transactionID)
	if err != nil {
		return err
	}
	txn := w.transactions[i]
	if txn.Type != TransactionTypeWithdraw {
		return apperror.Validation("Transaction is not a withdrawal")
	}
	updated, err := txn.Complete()
	if err != nil {
		return err
	}
	w.frozenBalance.Amount -= txn.TotalDeduction().Amount
	w.transactions[i] = updated
	w.touch()
	return nil
}

// FailWithdraw reverses a pending withdrawal: the hold is released and
// the funds, fee included, return to the balance.
func (w *Wallet) FailWithdraw(transactionID, reason string) error {
	i, err := w.indexOf(transactionID)
	if err != nil {
		return err
	}
	txn := w.transactions[i]
	if txn.Type != TransactionTypeWithdraw {
		return apperror.Validation("Transaction is not a withdrawal")
	}
	updated, err := txn.Fail(reason)
	if err != nil {
		return err
	}
	total := txn.TotalDeduction().Amount
	w.frozenBalance.Amount -= total
	w.balance.Amount += total
	w.transactions[i] = updated
	w.touch()
	return nil
}

// RefundTransfer compensates a transfer whose credit leg failed: the
// outgoing transaction is failed and amount plus fee return to the
// balance.
func (w *Wallet) RefundTransfer(transactionID, reason string) error {
	i, err := w.indexOf(transactionID)
	if err != nil {
		return err
	}
	txn := w.transactions[i]
	if txn.Type != TransactionTypeTransferOut {
		return apperror.Validation("Transaction is not an outgoing transfer")
	}
	updated, err := txn.Fail(reason)
	if err != nil {
		return err
	}
	w.balance.Amount += txn.TotalDeduction().Amount
	w.transactions[i] = updated
	w.touch()
	return nil
}

// ---- Queries ----

// TodayTotal sums the amounts of today's SUCCESS transactions of the
// given type.
func (w *Wallet) TodayTotal(txType TransactionType) Money {
	return w.totalOn(txType, w.clock())
}

// RecentTransactions returns up to limit transactions, newest first.
func (w *Wallet) RecentTransactions(limit int) []Transaction {
	sorted := make([]Transaction, len(w.transactions))
	copy(sorted, w.transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreateTime.After(sorted[j].CreateTime)
	})
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}

// Transactions returns a copy of the full ledger.
func (w *Wallet) Transactions() []Transaction {
	txns := make([]Transaction, len(w.transactions))
	copy(txns, w.transactions)
	return txns
}

func (w *Wallet) indexOf(transactionID string) (int, error) {
	for i, t := range w.transactions {
		if t.ID == transactionID {
			return i, nil
		}
	}
	return 0, apperror.ErrNotFound("Transaction")
}

// FindTransaction looks up a ledger entry by ID.
func (w *Wallet) FindTransaction(transactionID string) (Transaction, bool) {
	for _, t := range w.transactions {
		if t.ID == transactionID {
			return t, true
		}
	}
	return Transaction{}, false
}

// ---- Internals ----

func (w *Wallet) validateAmount(amount Money) error {
	if amount.Amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if !amount.SameCurrency(w.balance) {
		return apperror.ErrCurrencyMismatch(w.balance.Currency, amount.Currency)
	}
	return nil
}

func (w *Wallet) checkSufficient(total Money) error {
	available := w.AvailableBalance()
	ok, err := available.IsGreaterThanOrEqualTo(total)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.ErrInsufficientBalance()
	}
	return nil
}

func (w *Wallet) checkDailyLimit(txType TransactionType, amount Money, limit *Money, operation string) error {
	if limit == nil {
		return nil
	}
	spent := w.totalOn(txType, w.clock())
	after := Money{Amount: spent.Amount + amount.Amount, Currency: amount.Currency}
	over, err := after.IsGreaterThan(*limit)
	if err != nil {
		return err
	}
	if over {
		return apperror.ErrDailyLimitExceeded(operation)
	}
	return nil
}

// transferFee is 0.1% of the amount, clamped to [0.01, 5.00] in the
// wallet currency.
func (w *Wallet) transferFee(amount Money) Money {
	fee := amount.Multiply(transferFeeRate)
	if fee.Amount < transferFeeMinUnits {
		fee.Amount = transferFeeMinUnits
	}
	if fee.Amount > transferFeeMaxUnits {
		fee.Amount = transferFeeMaxUnits
	}
	return fee
}

func (w *Wallet) totalOn(txType TransactionType, day time.Time) Money {
	total := Zero(w.balance.Currency)
	for _, t := range w.transactions {
		if t.Type == txType && t.Status == TransactionStatusSuccess && sameDay(t.CreateTime, day) {
			total.Amount += t.Amount.Amount
		}
	}
	return total
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (w *Wallet) record(txn Transaction) {
	w.transactions = append(w.transactions, txn)
	now := w.clock()
	w.lastTransactionTime = &now
	w.updateTime = now
}

func (w *Wallet) touch() {
	w.updateTime = w.clock()
}
