// Package rpc implements the unary entry points of the Session Bus (C3)
// that precede match membership: joining/leaving the matchmaking queue,
// rejoining a room, and the wallet operations (deposit/withdraw/balance).
//
// Grounded on the teacher's RPC handler shape in items/match_result.go
// (RpcNotifyMatchStart/RpcSubmitMatchResult): read ctx user id, unmarshal
// payload, validate, act, marshal response — generalized from item/reward
// semantics to matchmaking and wallet semantics.
package rpc

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/shopspring/decimal"

	"github.com/blackdru/arena-server/internal/apperrors"
	"github.com/blackdru/arena-server/internal/storage"
)

var validate = validator.New()

// Deps bundles the collaborators the RPC layer needs.
type Deps struct {
	Queue *storage.QueueStore
}

type joinMatchmakingRequest struct {
	GameType   string `json:"gameType" validate:"required,oneof=CLASSIC_LUDO FAST_LUDO MEMORY SNAKES_LADDERS"`
	MaxPlayers int    `json:"maxPlayers" validate:"required,min=2,max=4"`
	EntryFee   string `json:"entryFee" validate:"required"`
}

// JoinMatchmaking handles spec §4.6's joinMatchmaking RPC.
func (d *Deps) JoinMatchmaking(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok {
		return "", apperrors.ErrNoUserID
	}

	var req joinMatchmakingRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", apperrors.ErrUnmarshal
	}
	if err := validate.Struct(req); err != nil {
		return "", apperrors.ErrInvalidPayload
	}

	// A zero fee is a free room; only negative or malformed fees are rejected.
	fee, err := decimal.NewFromString(req.EntryFee)
	if err != nil || fee.Sign() < 0 {
		return "", apperrors.ErrInvalidAmount
	}

	entry := storage.QueueEntryRow{
		ID:         uuid.NewString(),
		UserID:     userID,
		GameType:   req.GameType,
		MaxPlayers: req.MaxPlayers,
		EntryFee:   fee,
		EnqueuedAt: time.Now().UTC(),
	}
	if err := d.Queue.Enqueue(ctx, entry); err != nil {
		logger.Error("joinMatchmaking: enqueue user=%s: %v", userID, err)
		return "", apperrors.ErrStorageUnavailable
	}

	return marshalStatus("waiting")
}

// LeaveMatchmaking handles spec §4.6's leaveMatchmaking RPC.
func (d *Deps) LeaveMatchmaking(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok {
		return "", apperrors.ErrNoUserID
	}

	if err := d.Queue.Leave(ctx, userID); err != nil {
		logger.Error("leaveMatchmaking: user=%s: %v", userID, err)
		return "", apperrors.ErrStorageUnavailable
	}
	return marshalStatus("left")
}

func marshalStatus(status string) (string, error) {
	data, err := json.Marshal(struct {
		Status string `json:"status"`
	}{Status: status})
	if err != nil {
		return "", apperrors.ErrInternal
	}
	return string(data), nil
}
