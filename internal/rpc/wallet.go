package rpc

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/shopspring/decimal"

	"github.com/blackdru/arena-server/internal/apperrors"
	"github.com/blackdru/arena-server/internal/config"
	"github.com/blackdru/arena-server/internal/wallet"
)

// WalletDeps bundles the wallet-facing RPC collaborators.
type WalletDeps struct {
	Ledger *wallet.Ledger
	Config *config.Config
}

type reserveDepositRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// ReserveDeposit handles the client-initiated half of a deposit: it opens a
// PENDING ledger entry the payment gateway will later confirm out of band.
func (d *WalletDeps) ReserveDeposit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok {
		return "", apperrors.ErrNoUserID
	}

	var req reserveDepositRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", apperrors.ErrUnmarshal
	}
	amount, err := parseAmount(req.Amount)
	if err != nil || amount.LessThan(d.Config.DepositMin) || amount.GreaterThan(d.Config.DepositMax) {
		return "", apperrors.ErrInvalidAmount
	}

	ledgerID, err := d.Ledger.ReserveDeposit(ctx, userID, amount)
	if err != nil {
		logger.Error("reserveDeposit: user=%s: %v", userID, err)
		return "", apperrors.ErrInternal
	}

	data, _ := json.Marshal(struct {
		LedgerID string `json:"ledgerId"`
	}{LedgerID: ledgerID})
	return string(data), nil
}

type confirmDepositRequest struct {
	LedgerID  string `json:"ledgerId" validate:"required"`
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// ConfirmDeposit handles the payment gateway's signed callback.
func (d *WalletDeps) ConfirmDeposit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req confirmDepositRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", apperrors.ErrUnmarshal
	}
	if err := validate.Struct(req); err != nil {
		return "", apperrors.ErrInvalidPayload
	}

	receipt := wallet.Receipt{OrderID: req.OrderID, PaymentID: req.PaymentID, Signature: req.Signature}
	result, err := d.Ledger.ConfirmDeposit(ctx, req.LedgerID, receipt, d.Config.GatewaySecret)
	if err != nil {
		logger.Warn("confirmDeposit: ledger=%s: %v", req.LedgerID, err)
		return "", err
	}

	data, _ := json.Marshal(struct {
		NewBalance string `json:"newBalance"`
	}{NewBalance: result.NewBalance.String()})
	return string(data), nil
}

type requestWithdrawalRequest struct {
	Amount        string `json:"amount" validate:"required"`
	AccountNumber string `json:"accountNumber" validate:"required"`
	IFSC          string `json:"ifsc" validate:"required"`
	AccountName   string `json:"accountName" validate:"required"`
}

// RequestWithdrawal handles a user-initiated payout request.
func (d *WalletDeps) RequestWithdrawal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok {
		return "", apperrors.ErrNoUserID
	}

	var req requestWithdrawalRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", apperrors.ErrUnmarshal
	}
	if err := validate.Struct(req); err != nil {
		return "", apperrors.ErrInvalidPayload
	}
	amount, err := parseAmount(req.Amount)
	if err != nil || amount.LessThan(d.Config.MinWithdrawal) {
		return "", apperrors.ErrInvalidAmount
	}

	bank := wallet.BankDetails{AccountNumber: req.AccountNumber, IFSC: req.IFSC, AccountName: req.AccountName}
	ledgerID, err := d.Ledger.RequestWithdrawal(ctx, userID, amount, bank)
	if err != nil {
		logger.Error("requestWithdrawal: user=%s: %v", userID, err)
		return "", err
	}

	data, _ := json.Marshal(struct {
		LedgerID string `json:"ledgerId"`
	}{LedgerID: ledgerID})
	return string(data), nil
}

// GetBalance returns the caller's current wallet balance.
func (d *WalletDeps) GetBalance(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok {
		return "", apperrors.ErrNoUserID
	}

	balance, err := d.Ledger.Balance(ctx, userID)
	if err != nil {
		logger.Error("getBalance: user=%s: %v", userID, err)
		return "", apperrors.ErrInternal
	}

	data, _ := json.Marshal(struct {
		Balance string `json:"balance"`
	}{Balance: balance.String()})
	return string(data), nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, apperrors.ErrInvalidAmount
	}
	return amount, nil
}
