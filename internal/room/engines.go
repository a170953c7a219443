package room

import (
	"fmt"

	"github.com/blackdru/arena-server/internal/engine"
	"github.com/blackdru/arena-server/internal/engine/ludo"
	"github.com/blackdru/arena-server/internal/engine/memory"
	"github.com/blackdru/arena-server/internal/engine/snakes"
	"github.com/blackdru/arena-server/internal/storage"
)

// newEngine is the room worker's dynamic dispatch over game types (spec
// §10 REDESIGN FLAGS rationale: the worker stays engine-agnostic).
func newEngine(gameType storage.GameType, playerCount int) (engine.Engine, error) {
	switch gameType {
	case storage.GameClassicLudo:
		return ludo.New(ludo.Classic, 0), nil
	case storage.GameFastLudo:
		return ludo.New(ludo.Fast, ludo.FastLudoClockSeconds(playerCount)), nil
	case storage.GameMemory:
		return memory.New(memory.DefaultPairCount), nil
	case storage.GameSnakesLadders:
		return snakes.New(), nil
	default:
		return nil, fmt.Errorf("unknown game type %q", gameType)
	}
}
