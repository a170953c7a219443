package rpc

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/blackdru/arena-server/internal/apperrors"
	"github.com/blackdru/arena-server/internal/config"
	"github.com/blackdru/arena-server/internal/notify"
	"github.com/blackdru/arena-server/internal/storage"
	"github.com/blackdru/arena-server/internal/wallet"
)

// AdminDeps bundles the collaborators the admin-only RPCs need.
type AdminDeps struct {
	Rooms  *storage.RoomStore
	Ledger *wallet.Ledger
	Config *config.Config
}

type cancelRoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

// CancelRoom handles the supplemented admin-facing room cancellation used
// by scenario 2: a configured admin marks a WAITING/PLAYING room CANCELLED
// and every seated participant's entry fee is refunded in full. Gated to
// Config.AdminUserIDs; has no Nakama-runtime equivalent in the teacher so
// the authorization check is done by hand rather than an RPC-level ACL.
func (d *AdminDeps) CancelRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok {
		return "", apperrors.ErrNoUserID
	}
	if !d.Config.IsAdmin(userID) {
		return "", apperrors.ErrForbidden
	}

	var req cancelRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", apperrors.ErrUnmarshal
	}
	if req.RoomID == "" {
		return "", apperrors.ErrInvalidPayload
	}

	room, err := d.Rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		return "", apperrors.ErrRoomNotFound
	}
	participants, err := d.Rooms.GetParticipants(ctx, req.RoomID)
	if err != nil {
		logger.Error("cancelRoom: load participants room=%s: %v", req.RoomID, err)
		return "", apperrors.ErrStorageUnavailable
	}

	if err := d.Rooms.Cancel(ctx, req.RoomID); err != nil {
		if err == sql.ErrNoRows {
			return "", apperrors.ErrRoomNotWaiting
		}
		logger.Error("cancelRoom: cancel room=%s: %v", req.RoomID, err)
		return "", apperrors.ErrStorageUnavailable
	}

	if room.EntryFee.Sign() > 0 {
		for _, p := range participants {
			gameID := req.RoomID
			if _, err := d.Ledger.Credit(ctx, p.UserID, wallet.KindRefund, room.EntryFee, "room cancelled by admin", &gameID); err != nil {
				logger.Error("cancelRoom: refund user=%s room=%s: %v", p.UserID, req.RoomID, err)
				continue
			}
			_ = notify.MatchmakingError(ctx, nk, p.UserID, "room cancelled, entry fee refunded")
		}
	}

	return marshalStatus("cancelled")
}
