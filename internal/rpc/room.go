package rpc

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/blackdru/arena-server/internal/apperrors"
	"github.com/blackdru/arena-server/internal/storage"
)

// RoomDeps bundles the collaborators joinGameRoom needs to verify
// membership and return the match id for the client to join.
type RoomDeps struct {
	Rooms *storage.RoomStore
}

type joinGameRoomRequest struct {
	GameID string `json:"gameId" validate:"required"`
}

// JoinGameRoom handles spec §4.6's joinGameRoom event: verify the caller is
// a seated participant, then hand back the Nakama match id so the client's
// realtime socket can MatchJoin directly (current state is re-emitted by
// the match itself on join, per spec §5 scenario 6).
func (d *RoomDeps) JoinGameRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok {
		return "", apperrors.ErrNoUserID
	}

	var req joinGameRoomRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", apperrors.ErrUnmarshal
	}
	if req.GameID == "" {
		return "", apperrors.ErrInvalidPayload
	}

	participants, err := d.Rooms.GetParticipants(ctx, req.GameID)
	if err != nil {
		logger.Error("joinGameRoom: load participants room=%s: %v", req.GameID, err)
		return "", apperrors.ErrRoomNotFound
	}

	seated := false
	for _, p := range participants {
		if p.UserID == userID {
			seated = true
			break
		}
	}
	if !seated {
		return "", apperrors.ErrNotParticipant
	}

	data, _ := json.Marshal(struct {
		MatchID string `json:"matchId"`
	}{MatchID: req.GameID})
	return string(data), nil
}
