package rest

import (
	"context"
	"net/http"
	"time"

	"electroCare/business/wallet"
	"electroCare/domain"
	"electroCare/internal/middleware"
	"electroCare/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type (
	WalletService interface {
		GetWallet(ctx context.Context, userID uint) (domain.Wallet, error)
		ListTransactions(ctx context.Context, userID uint) ([]domain.Transaction, error)
		TopUp(ctx context.Context, userID uint, amount decimal.Decimal) (domain.Wallet, error)
		RedeemPoints(ctx context.Context, userID uint) (domain.Wallet, error)
		RedeemElectroCoins(ctx context.Context, userID uint, amount int64) (domain.Wallet, error)
		RequestWithdrawal(ctx context.Context, userID uint, in wallet.WithdrawalInput) (domain.Withdrawal, error)
		ApproveWithdrawal(ctx context.Context, id uint, reviewer domain.Actor) (domain.Withdrawal, error)
		RejectWithdrawal(ctx context.Context, id uint, reviewer domain.Actor, reason string) (domain.Withdrawal, error)
		ListWithdrawals(ctx context.Context, status string) ([]domain.Withdrawal, error)
		ListMyWithdrawals(ctx context.Context, userID uint) ([]domain.Withdrawal, error)
	}

	WalletHandler struct {
		walletService WalletService
		validate      *validator.Validate
		timeout       time.Duration
	}

	TopUpRequest struct {
		Amount decimal.Decimal `json:"amount"`
	}

	RedeemCoinsRequest struct {
		Amount int64 `json:"amount" validate:"required,gt=0"`
	}

	WithdrawRequest struct {
		Amount  decimal.Decimal `json:"amount"`
		Method  string          `json:"method" validate:"required,oneof=mpesa bank"`
		Account string          `json:"account" validate:"required,max=100"`
	}

	ReviewWithdrawalRequest struct {
		WithdrawalID uint   `json:"withdrawal_id" validate:"required"`
		Reason       string `json:"reason" validate:"max=255"`
	}
)

func NewWalletHandler(walletService WalletService) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		validate:      validator.New(),
		timeout:       10 * time.Second,
	}
}

func (h *WalletHandler) GetWallet(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	w, err := h.walletService.GetWallet(ctx, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(w))
}

func (h *WalletHandler) ListTransactions(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	txs, err := h.walletService.ListTransactions(ctx, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(txs))
}

func (h *WalletHandler) TopUp(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	var req TopUpRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	w, err := h.walletService.TopUp(ctx, userID, req.Amount)
	if err != nil {
		logger.Error("Failed to top up wallet", err, "user_id", userID)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(w))
}

func (h *WalletHandler) RedeemPoints(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	w, err := h.walletService.RedeemPoints(ctx, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(w))
}

func (h *WalletHandler) RedeemElectroCoins(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	var req RedeemCoinsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	w, err := h.walletService.RedeemElectroCoins(ctx, userID, req.Amount)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(w))
}

func (h *WalletHandler) Withdraw(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	var req WithdrawRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	withdrawal, err := h.walletService.RequestWithdrawal(ctx, userID, wallet.WithdrawalInput{
		Amount:  req.Amount,
		Method:  req.Method,
		Account: req.Account,
	})
	if err != nil {
		logger.Error("Failed to request withdrawal", err, "user_id", userID)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(withdrawal))
}

func (h *WalletHandler) ListMyWithdrawals(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return unauthorized(c)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	withdrawals, err := h.walletService.ListMyWithdrawals(ctx, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(withdrawals))
}

// ApproveWithdrawal pays out through the payout provider. A provider failure
// answers 502 and the held amount is returned to the user.
func (h *WalletHandler) ApproveWithdrawal(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req ReviewWithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	// The payout call gets its own budget on top of the database work.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*h.timeout)
	defer cancel()

	withdrawal, err := h.walletService.ApproveWithdrawal(ctx, req.WithdrawalID, actor)
	if err != nil {
		logger.Error("Failed to approve withdrawal", err, "withdrawal_id", req.WithdrawalID)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(withdrawal))
}

func (h *WalletHandler) RejectWithdrawal(c echo.Context) error {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return unauthorized(c)
	}

	var req ReviewWithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	if err := h.validate.Struct(&req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	withdrawal, err := h.walletService.RejectWithdrawal(ctx, req.WithdrawalID, actor, req.Reason)
	if err != nil {
		logger.Error("Failed to reject withdrawal", err, "withdrawal_id", req.WithdrawalID)
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(withdrawal))
}

func (h *WalletHandler) ListWithdrawals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	withdrawals, err := h.walletService.ListWithdrawals(ctx, c.QueryParam("status"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(withdrawals))
}
