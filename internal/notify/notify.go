// Package notify sends out-of-band client notifications for events that
// happen before a player has a match socket to push to: a matchmaking claim
// forming a room, or a claim failing.
//
// Grounded on the teacher's notify package (SendToast/SendCenterMessage
// wrapping nk.NotificationSend with a fixed content map and numeric code),
// generalized from cosmetic toast/reward codes to the matchmaking codes our
// domain needs.
package notify

import (
	"context"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Notification codes delivered via nk.NotificationSend.
const (
	CodeMatchFound       = 1
	CodeMatchmakingError = 2
)

// MatchFound tells a user their queue entry was claimed and a room exists.
func MatchFound(ctx context.Context, nk runtime.NakamaModule, userID, matchID, gameType string) error {
	content := map[string]interface{}{
		"matchId":  matchID,
		"gameType": gameType,
	}
	return nk.NotificationSend(ctx, userID, "Match found", content, CodeMatchFound, "", false)
}

// MatchmakingError tells a user their queue entry was dropped (e.g.
// insufficient balance at claim time).
func MatchmakingError(ctx context.Context, nk runtime.NakamaModule, userID, reason string) error {
	content := map[string]interface{}{
		"reason": reason,
	}
	return nk.NotificationSend(ctx, userID, "Matchmaking failed", content, CodeMatchmakingError, "", false)
}
