package dto

// CreateWalletRequest is the request body for opening a wallet.
type CreateWalletRequest struct {
	Currency string `json:"currency" binding:"required,len=3"`
}

// RechargeRequest is the request body for crediting a wallet.
type RechargeRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,len=3"`
	Description string `json:"description" binding:"max=200"`
}

// TransferRequest is the request body for a wallet-to-wallet transfer.
type TransferRequest struct {
	ToUserID        int64  `json:"to_user_id" binding:"required,gt=0"`
	Amount          int64  `json:"amount" binding:"required,gt=0"`
	Currency        string `json:"currency" binding:"required,len=3"`
	Memo            string `json:"memo" binding:"max=500"`
	PaymentPassword string `json:"payment_password,omitempty"`
}

// WithdrawRequest is the request body for a withdrawal.
type WithdrawRequest struct {
	Amount          int64  `json:"amount" binding:"required,gt=0"`
	Currency        string `json:"currency" binding:"required,len=3"`
	Description     string `json:"description" binding:"max=200"`
	PaymentPassword string `json:"payment_password,omitempty"`
}

// PaymentRequest is the request body for paying an external party.
type PaymentRequest struct {
	Amount                int64  `json:"amount" binding:"required,gt=0"`
	Currency              string `json:"currency" binding:"required,len=3"`
	Description           string `json:"description" binding:"max=200"`
	ExternalTransactionID string `json:"external_transaction_id" binding:"required,max=100,safe_id"`
	PaymentPassword       string `json:"payment_password,omitempty"`
}

// FreezeRequest is the request body for freezing a wallet.
type FreezeRequest struct {
	Reason string `json:"reason" binding:"required,max=200"`
}

// SetPasswordRequest is the request body for setting the payment password.
type SetPasswordRequest struct {
	Password string `json:"password" binding:"required,len=6,numeric"`
}

// MoneyLimit carries an optional limit in minor units. A null field in
// UpdateSettingsRequest means unlimited.
type MoneyLimit struct {
	Amount   int64  `json:"amount" binding:"gte=0"`
	Currency string `json:"currency" binding:"required,len=3"`
}

// UpdateSettingsRequest is the request body for replacing wallet policy.
type UpdateSettingsRequest struct {
	EnableTransfer bool `json:"enable_transfer"`
	EnablePayment  bool `json:"enable_payment"`
	EnableWithdraw bool `json:"enable_withdraw"`

	DailyTransferLimit *MoneyLimit `json:"daily_transfer_limit,omitempty"`
	DailyPaymentLimit  *MoneyLimit `json:"daily_payment_limit,omitempty"`
	DailyWithdrawLimit *MoneyLimit `json:"daily_withdraw_limit,omitempty"`

	SingleTransferLimit *MoneyLimit `json:"single_transfer_limit,omitempty"`
	SinglePaymentLimit  *MoneyLimit `json:"single_payment_limit,omitempty"`
	SingleWithdrawLimit *MoneyLimit `json:"single_withdraw_limit,omitempty"`

	RequirePasswordForTransfer bool `json:"require_password_for_transfer"`
	RequirePasswordForPayment  bool `json:"require_password_for_payment"`
	RequirePasswordForWithdraw bool `json:"require_password_for_withdraw"`

	EnableSMSNotification   bool `json:"enable_sms_notification"`
	EnableEmailNotification bool `json:"enable_email_notification"`
	EnableAppNotification   bool `json:"enable_app_notification"`

	AutoLockMinutes   int  `json:"auto_lock_minutes" binding:"gte=0,lte=1440"`
	EnableRiskControl bool `json:"enable_risk_control"`
}

// FailWithdrawRequest is the request body for marking a withdrawal failed.
type FailWithdrawRequest struct {
	Reason string `json:"reason" binding:"required,max=200"`
}

// LoginRequest is the request body for issuing a dashboard token.
type LoginRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}

// LoginResponse is the response body for a successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// WalletResponse is the response body for wallet queries.
type WalletResponse struct {
	WalletID            string `json:"wallet_id"`
	UserID              int64  `json:"user_id"`
	Balance             int64  `json:"balance"`
	FrozenBalance       int64  `json:"frozen_balance"`
	AvailableBalance    int64  `json:"available_balance"`
	Currency            string `json:"currency"`
	Status              string `json:"status"`
	HasPaymentPassword  bool   `json:"has_payment_password"`
	CreateTime          string `json:"create_time"`
	LastTransactionTime *string `json:"last_transaction_time,omitempty"`
}

// TransactionResponse is the response body for transaction results.
type TransactionResponse struct {
	ID                    string  `json:"id"`
	WalletID              string  `json:"wallet_id"`
	Type                  string  `json:"type"`
	Amount                int64   `json:"amount"`
	Fee                   int64   `json:"fee"`
	Currency              string  `json:"currency"`
	FromUserID            *int64  `json:"from_user_id,omitempty"`
	ToUserID              *int64  `json:"to_user_id,omitempty"`
	Description           string  `json:"description"`
	Memo                  string  `json:"memo,omitempty"`
	Status                string  `json:"status"`
	ExternalTransactionID string  `json:"external_transaction_id,omitempty"`
	CreateTime            string  `json:"create_time"`
	CompleteTime          *string `json:"complete_time,omitempty"`
	FailureReason         string  `json:"failure_reason,omitempty"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}
