package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/blackdru/arena-server/internal/wallet"
)

// newSessionHooks builds the RegisterAfterAuthenticate* handlers that
// bootstrap a real-money wallet row for brand-new users. Grounded on the
// teacher's AfterAuthorizeUserGC/AfterAuthorizeUserDevice pair in
// items/initialize_user.go, generalized from Nakama's int64-changeset
// cosmetic wallet (gold/gems/treats) to our own decimal ledger (C1) —
// the top-level initialize_user.go this replaced never compiled.
func newSessionHooks(ledger *wallet.Ledger) *sessionHooks {
	return &sessionHooks{ledger: ledger}
}

type sessionHooks struct {
	ledger *wallet.Ledger
}

func (h *sessionHooks) AfterAuthenticateDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	return h.bootstrapWallet(ctx, logger, out)
}

func (h *sessionHooks) AfterAuthenticateGameCenter(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateGameCenterRequest) error {
	return h.bootstrapWallet(ctx, logger, out)
}

// bootstrapWallet ensures a wallets row exists for a first-time user.
func (h *sessionHooks) bootstrapWallet(ctx context.Context, logger runtime.Logger, out *api.Session) error {
	if !out.Created {
		return nil
	}
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return fmt.Errorf("session hook: no user id in context")
	}
	if err := h.ledger.EnsureWallet(ctx, userID); err != nil {
		logger.Error("wallet bootstrap failed for user=%s: %v", userID, err)
		return fmt.Errorf("wallet bootstrap: %w", err)
	}
	return nil
}
