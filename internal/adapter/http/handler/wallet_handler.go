package handler

import (
	"math"
	"strconv"
	"time"

	"user-wallet-service/internal/adapter/http/dto"
	"user-wallet-service/internal/adapter/http/middleware"
	"user-wallet-service/internal/core/domain"
	"user-wallet-service/internal/core/ports"
	"user-wallet-service/pkg/apperror"
	"user-wallet-service/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// currentUserID extracts the authenticated user from the request context.
func currentUserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return 0, false
	}
	userID, ok := v.(int64)
	return userID, ok
}

// CreateWallet handles POST /api/v1/wallets.
func (h *WalletHandler) CreateWallet(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	wallet, err := h.walletSvc.CreateWallet(c.Request.Context(), userID, req.Currency)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toWalletResponse(wallet))
}

// GetWallet handles GET /api/v1/wallets/me.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.walletSvc.GetWallet(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// Recharge handles POST /api/v1/wallets/recharge.
func (h *WalletHandler) Recharge(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.walletSvc.Recharge(c.Request.Context(), ports.RechargeRequest{
		UserID:         userID,
		Amount:         domain.NewMoney(req.Amount, req.Currency),
		Description:    req.Description,
		IdempotencyKey: c.GetHeader(middleware.HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(result))
}

// Transfer handles POST /api/v1/wallets/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.walletSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		FromUserID:      userID,
		ToUserID:        req.ToUserID,
		Amount:          domain.NewMoney(req.Amount, req.Currency),
		Memo:            req.Memo,
		PaymentPassword: req.PaymentPassword,
		IdempotencyKey:  c.GetHeader(middleware.HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(result))
}

// Withdraw handles POST /api/v1/wallets/withdraw.
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.walletSvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		UserID:          userID,
		Amount:          domain.NewMoney(req.Amount, req.Currency),
		Description:     req.Description,
		PaymentPassword: req.PaymentPassword,
		IdempotencyKey:  c.GetHeader(middleware.HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(result))
}

// Pay handles POST /api/v1/wallets/pay.
func (h *WalletHandler) Pay(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.walletSvc.Pay(c.Request.Context(), ports.PaymentRequest{
		UserID:                userID,
		Amount:                domain.NewMoney(req.Amount, req.Currency),
		Description:           req.Description,
		ExternalTransactionID: req.ExternalTransactionID,
		PaymentPassword:       req.PaymentPassword,
		IdempotencyKey:        c.GetHeader(middleware.HeaderIdempotencyKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toTransactionResponse(result))
}

// ConfirmWithdraw handles POST /api/v1/withdrawals/:id/confirm.
func (h *WalletHandler) ConfirmWithdraw(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	transactionID := c.Param("id")
	if err := h.walletSvc.ConfirmWithdraw(c.Request.Context(), userID, transactionID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"id": transactionID, "status": string(domain.TransactionStatusSuccess)})
}

// FailWithdraw handles POST /api/v1/withdrawals/:id/fail.
func (h *WalletHandler) FailWithdraw(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.FailWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	transactionID := c.Param("id")
	if err := h.walletSvc.FailWithdraw(c.Request.Context(), userID, transactionID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"id": transactionID, "status": string(domain.TransactionStatusFailed)})
}

// Freeze handles POST /api/v1/wallets/freeze.
func (h *WalletHandler) Freeze(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.FreezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.walletSvc.FreezeWallet(c.Request.Context(), userID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"status": string(domain.WalletStatusFrozen)})
}

// Unfreeze handles POST /api/v1/wallets/unfreeze.
func (h *WalletHandler) Unfreeze(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	if err := h.walletSvc.UnfreezeWallet(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"status": string(domain.WalletStatusActive)})
}

// SetPaymentPassword handles PUT /api/v1/wallets/password.
func (h *WalletHandler) SetPaymentPassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.walletSvc.SetPaymentPassword(c.Request.Context(), userID, req.Password); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Payment password updated"})
}

// UpdateSettings handles PUT /api/v1/wallets/settings.
func (h *WalletHandler) UpdateSettings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.walletSvc.UpdateSettings(c.Request.Context(), userID, settingsFromDTO(req)); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Settings updated"})
}

// ListTransactions handles GET /api/v1/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	params := ports.TransactionListParams{
		Page:     page,
		PageSize: pageSize,
	}

	if s := c.Query("status"); s != "" {
		status := domain.TransactionStatus(s)
		params.Status = &status
	}
	if t := c.Query("type"); t != "" {
		txType := domain.TransactionType(t)
		params.Type = &txType
	}
	if f := c.Query("from"); f != "" {
		if v, err := strconv.ParseInt(f, 10, 64); err == nil {
			params.From = &v
		}
	}
	if t := c.Query("to"); t != "" {
		if v, err := strconv.ParseInt(t, 10, 64); err == nil {
			params.To = &v
		}
	}

	txns, total, err := h.walletSvc.ListTransactions(c.Request.Context(), userID, params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, toTransactionResponse(&txns[i]))
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// toWalletResponse converts a domain wallet to its DTO.
func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	resp := dto.WalletResponse{
		WalletID:           w.WalletID(),
		UserID:             w.UserID(),
		Balance:            w.Balance().Amount,
		FrozenBalance:      w.FrozenBalance().Amount,
		AvailableBalance:   w.AvailableBalance().Amount,
		Currency:           w.Currency(),
		Status:             string(w.Status()),
		HasPaymentPassword: w.HasPaymentPassword(),
		CreateTime:         w.CreateTime().Format(time.RFC3339),
	}
	if last := w.LastTransactionTime(); last != nil {
		s := last.Format(time.RFC3339)
		resp.LastTransactionTime = &s
	}
	return resp
}

// toTransactionResponse converts a ledger entry to its DTO.
func toTransactionResponse(tx *domain.Transaction) dto.TransactionResponse {
	resp := dto.TransactionResponse{
		ID:                    tx.ID,
		WalletID:              tx.WalletID,
		Type:                  string(tx.Type),
		Amount:                tx.Amount.Amount,
		Fee:                   tx.Fee.Amount,
		Currency:              tx.Amount.Currency,
		FromUserID:            tx.FromUserID,
		ToUserID:              tx.ToUserID,
		Description:           tx.Description,
		Memo:                  tx.Memo,
		Status:                string(tx.Status),
		ExternalTransactionID: tx.ExternalTransactionID,
		CreateTime:            tx.CreateTime.Format(time.RFC3339),
		FailureReason:         tx.FailureReason,
	}
	if tx.CompleteTime != nil {
		s := tx.CompleteTime.Format(time.RFC3339)
		resp.CompleteTime = &s
	}
	return resp
}

// settingsFromDTO maps the settings request onto the domain policy value.
func settingsFromDTO(req dto.UpdateSettingsRequest) domain.WalletSettings {
	return domain.WalletSettings{
		EnableTransfer:             req.EnableTransfer,
		EnablePayment:              req.EnablePayment,
		EnableWithdraw:             req.EnableWithdraw,
		DailyTransferLimit:         limitFromDTO(req.DailyTransferLimit),
		DailyPaymentLimit:          limitFromDTO(req.DailyPaymentLimit),
		DailyWithdrawLimit:         limitFromDTO(req.DailyWithdrawLimit),
		SingleTransferLimit:        limitFromDTO(req.SingleTransferLimit),
		SinglePaymentLimit:         limitFromDTO(req.SinglePaymentLimit),
		SingleWithdrawLimit:        limitFromDTO(req.SingleWithdrawLimit),
		RequirePasswordForTransfer: req.RequirePasswordForTransfer,
		RequirePasswordForPayment:  req.RequirePasswordForPayment,
		RequirePasswordForWithdraw: req.RequirePasswordForWithdraw,
		EnableSMSNotification:      req.EnableSMSNotification,
		EnableEmailNotification:    req.EnableEmailNotification,
		EnableAppNotification:      req.EnableAppNotification,
		AutoLockMinutes:            req.AutoLockMinutes,
		EnableRiskControl:          req.EnableRiskControl,
	}
}

func limitFromDTO(l *dto.MoneyLimit) *domain.Money {
	if l == nil {
		return nil
	}
	m := domain.NewMoney(l.Amount, l.Currency)
	return &m
}
