package engine

import "hash/fnv"

// SeedFromRoomID derives a deterministic int64 seed from a room id, so a
// room's shuffle can be replayed from persisted (room id + deltas) without
// storing the shuffle itself.
func SeedFromRoomID(roomID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(roomID))
	return int64(h.Sum64())
}
