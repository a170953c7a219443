package main

import (
	"context"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/blackdru/arena-server/internal/connreg"
	"github.com/blackdru/arena-server/internal/obslog"
)

// registerConnectionEvents wires the connection registry's Attach/Detach
// into Nakama's session lifecycle, so C2 tracks every live socket without
// the room worker needing to know about connect/disconnect directly.
func registerConnectionEvents(reg *connreg.Registry) (func(ctx context.Context, logger runtime.Logger, evt *api.Event), func(ctx context.Context, logger runtime.Logger, evt *api.Event)) {
	onStart := func(ctx context.Context, logger runtime.Logger, evt *api.Event) {
		sessionID, _ := ctx.Value(runtime.RUNTIME_CTX_SESSION_ID).(string)
		userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
		if sessionID == "" || userID == "" {
			return
		}
		reg.Attach(sessionID, userID)
	}

	onEnd := func(ctx context.Context, logger runtime.Logger, evt *api.Event) {
		sessionID, _ := ctx.Value(runtime.RUNTIME_CTX_SESSION_ID).(string)
		if sessionID == "" {
			return
		}
		if user, leftRooms := reg.Detach(sessionID); user != "" {
			obslog.Background().Infow("session ended", "user", user, "leftRooms", leftRooms)
		}
	}

	return onStart, onEnd
}
