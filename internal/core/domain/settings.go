package domain

import (
	"user-wallet-service/pkg/apperror"
)

const maxAutoLockMinutes = 1440 // 24 hours

// WalletSettings is the per-wallet policy: feature toggles, transaction
// limits, password and notification requirements. A nil limit means
// unlimited. Settings are immutable; With* constructors return a new value.
type WalletSettings struct {
	EnableTransfer bool `json:"enable_transfer"`
	EnablePayment  bool `json:"enable_payment"`
	EnableWithdraw bool `json:"enable_withdraw"`

	DailyTransferLimit *Money `json:"daily_transfer_limit,omitempty"`
	DailyPaymentLimit  *Money `json:"daily_payment_limit,omitempty"`
	DailyWithdrawLimit *Money `json:"daily_withdraw_limit,omitempty"`

	SingleTransferLimit *Money `json:"single_transfer_limit,omitempty"`
	SinglePaymentLimit  *Money `json:"single_payment_limit,omitempty"`
	SingleWithdrawLimit *Money `json:"single_withdraw_limit,omitempty"`

	RequirePasswordForTransfer bool `json:"require_password_for_transfer"`
	RequirePasswordForPayment  bool `json:"require_password_for_payment"`
	RequirePasswordForWithdraw bool `json:"require_password_for_withdraw"`

	EnableSMSNotification   bool `json:"enable_sms_notification"`
	EnableEmailNotification bool `json:"enable_email_notification"`
	EnableAppNotification   bool `json:"enable_app_notification"`

	AutoLockMinutes   int  `json:"auto_lock_minutes"`
	EnableRiskControl bool `json:"enable_risk_control"`
}

// DefaultSettings returns the settings applied to newly created CNY wallets.
func DefaultSettings() WalletSettings {
	return DefaultSettingsFor("CNY")
}

// DefaultSettingsFor returns the default policy denominated in the
// wallet's currency so limit comparisons stay coherent.
func DefaultSettingsFor(currency string) WalletSettings {
	return WalletSettings{
		EnableTransfer:             true,
		EnablePayment:              true,
		EnableWithdraw:             true,
		DailyTransferLimit:         moneyPtr(NewMoney(1000000, currency)), // 10,000.00
		DailyPaymentLimit:          moneyPtr(NewMoney(500000, currency)),  // 5,000.00
		DailyWithdrawLimit:         moneyPtr(NewMoney(200000, currency)),  // 2,000.00
		SingleTransferLimit:        moneyPtr(NewMoney(500000, currency)),  // 5,000.00
		SinglePaymentLimit:         moneyPtr(NewMoney(200000, currency)),  // 2,000.00
		SingleWithdrawLimit:        moneyPtr(NewMoney(100000, currency)),  // 1,000.00
		RequirePasswordForTransfer: true,
		RequirePasswordForPayment:  true,
		RequirePasswordForWithdraw: true,
		EnableSMSNotification:      true,
		EnableEmailNotification:    true,
		EnableAppNotification:      true,
		AutoLockMinutes:            30,
		EnableRiskControl:          true,
	}
}

// HighSecuritySettings returns a tightened preset with halved limits.
func HighSecuritySettings() WalletSettings {
	s := DefaultSettings()
	s.DailyTransferLimit = moneyPtr(CNY(500000))
	s.DailyPaymentLimit = moneyPtr(CNY(200000))
	s.DailyWithdrawLimit = moneyPtr(CNY(100000))
	s.SingleTransferLimit = moneyPtr(CNY(100000))
	s.SinglePaymentLimit = moneyPtr(CNY(50000))
	s.SingleWithdrawLimit = moneyPtr(CNY(50000))
	s.AutoLockMinutes = 15
	return s
}

// LowLimitSettings returns a restricted preset with withdrawals disabled.
func LowLimitSettings() WalletSettings {
	s := DefaultSettings()
	s.EnableWithdraw = false
	s.DailyTransferLimit = moneyPtr(CNY(100000))
	s.DailyPaymentLimit = moneyPtr(CNY(50000))
	s.DailyWithdrawLimit = moneyPtr(Zero("CNY"))
	s.SingleTransferLimit = moneyPtr(CNY(20000))
	s.SinglePaymentLimit = moneyPtr(CNY(10000))
	s.SingleWithdrawLimit = moneyPtr(Zero("CNY"))
	s.RequirePasswordForTransfer = false
	s.RequirePasswordForPayment = false
	s.RequirePasswordForWithdraw = false
	s.EnableSMSNotification = false
	s.EnableEmailNotification = false
	s.AutoLockMinutes = 60
	return s
}

// Validate checks limit and auto-lock constraints.
func (s WalletSettings) Validate() error {
	limits := []*Money{
		s.DailyTransferLimit, s.DailyPaymentLimit, s.DailyWithdrawLimit,
		s.SingleTransferLimit, s.SinglePaymentLimit, s.SingleWithdrawLimit,
	}
	for _, l := range limits {
		if l != nil && l.IsNegative() {
			return apperror.Validation("Limits cannot be negative")
		}
	}
	if s.AutoLockMinutes < 0 || s.AutoLockMinutes > maxAutoLockMinutes {
		return apperror.Validation("Auto-lock must be between 0 and 1440 minutes")
	}
	return nil
}

// AllowsTransfer reports whether the transfer toggle and single-transfer
// limit admit the amount. A currency mismatch against the limit denies.
func (s WalletSettings) AllowsTransfer(amount Money) bool {
	return s.EnableTransfer && withinLimit(amount, s.SingleTransferLimit)
}

// AllowsPayment reports whether the payment toggle and single-payment
// limit admit the amount.
func (s WalletSettings) AllowsPayment(amount Money) bool {
	return s.EnablePayment && withinLimit(amount, s.SinglePaymentLimit)
}

// AllowsWithdraw reports whether the withdraw toggle and single-withdraw
// limit admit the amount.
func (s WalletSettings) AllowsWithdraw(amount Money) bool {
	return s.EnableWithdraw && withinLimit(amount, s.SingleWithdrawLimit)
}

func withinLimit(amount Money, limit *Money) bool {
	if limit == nil {
		return true
	}
	ok, err := amount.IsLessThanOrEqualTo(*limit)
	return err == nil && ok
}

// WithTransferSettings returns a copy with updated transfer policy.
func (s WalletSettings) WithTransferSettings(enable bool, dailyLimit, singleLimit *Money) (WalletSettings, error) {
	s.EnableTransfer = enable
	s.DailyTransferLimit = dailyLimit
	s.SingleTransferLimit = singleLimit
	if err := s.Validate(); err != nil {
		return WalletSettings{}, err
	}
	return s, nil
}

// WithSecuritySettings returns a copy with updated password requirements
// and auto-lock window.
func (s WalletSettings) WithSecuritySettings(requireForTransfer, requireForPayment, requireForWithdraw bool, autoLockMinutes int) (WalletSettings, error) {
	s.RequirePasswordForTransfer = requireForTransfer
	s.RequirePasswordForPayment = requireForPayment
	s.RequirePasswordForWithdraw = requireForWithdraw
	s.AutoLockMinutes = autoLockMinutes
	if err := s.Validate(); err != nil {
		return WalletSettings{}, err
	}
	return s, nil
}

func moneyPtr(m Money) *Money {
	return &m
}
