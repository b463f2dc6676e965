package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a generic validation error for malformed input.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("VAL_002", "Amount must be non-zero", http.StatusBadRequest)
}

func ErrCurrencyMismatch(want, got string) *AppError {
	return New("VAL_003", fmt.Sprintf("Currency mismatch: %s vs %s", want, got), http.StatusBadRequest)
}

func ErrInvalidPaymentPassword() *AppError {
	return New("VAL_004", "Payment password must be exactly 6 digits", http.StatusBadRequest)
}

// ---- Wallet & transaction state (STATE) ----

func ErrWalletStatus(operation string, status string) *AppError {
	return New("STATE_001", fmt.Sprintf("Wallet status %s does not allow %s", status, operation), http.StatusConflict)
}

func ErrFeatureDisabled(feature string) *AppError {
	return New("STATE_002", fmt.Sprintf("%s is disabled for this wallet", feature), http.StatusForbidden)
}

func ErrWalletAlreadyFrozen() *AppError {
	return New("STATE_003", "Wallet is already frozen", http.StatusConflict)
}

func ErrWalletNotFrozen() *AppError {
	return New("STATE_004", "Wallet is not frozen", http.StatusConflict)
}

func ErrInvalidStateTransition(from string) *AppError {
	return New("STATE_005", fmt.Sprintf("Transaction in status %s cannot transition", from), http.StatusConflict)
}

// ---- Limits (LIMIT) ----

func ErrSingleLimitExceeded(operation string) *AppError {
	return New("LIMIT_001", fmt.Sprintf("Amount exceeds the single-%s limit", operation), http.StatusUnprocessableEntity)
}

func ErrDailyLimitExceeded(operation string) *AppError {
	return New("LIMIT_002", fmt.Sprintf("Amount exceeds the daily %s limit", operation), http.StatusUnprocessableEntity)
}

// ---- Balance (BAL) ----

func ErrInsufficientBalance() *AppError {
	return New("BAL_001", "Insufficient available balance", http.StatusPaymentRequired)
}

// ---- Concurrency (CONC) ----

func ErrVersionConflict() *AppError {
	return New("CONC_001", "Wallet was modified concurrently, retry the operation", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrWrongPaymentPassword() *AppError {
	return New("AUTH_002", "Wrong payment password", http.StatusForbidden)
}

func ErrPaymentPasswordNotSet() *AppError {
	return New("AUTH_003", "Payment password has not been set", http.StatusForbidden)
}

// ---- Resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrWalletExists() *AppError {
	return New("RES_002", "User already has a wallet", http.StatusConflict)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_002", "Internal database error", http.StatusInternalServerError, err)
}
