package tournamentdomain

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Session-level advisory lock keys for the singleton periodic tasks.
const (
	MatchmakingLockKey  int64 = 0x54524e4d4d4b0001
	HousekeepingLockKey int64 = 0x54524e4d4d4b0002
	RoundSweepLockKey   int64 = 0x54524e4d4d4b0003
)

// EventLockKeys folds an event id into the two int4 keys taken by
// pg_advisory_xact_lock(int4, int4). The same id always yields the same pair.
func EventLockKeys(eventID uuid.UUID) (int32, int32) {
	b := eventID[:]
	hi := binary.BigEndian.Uint32(b[0:4]) ^ binary.BigEndian.Uint32(b[8:12])
	lo := binary.BigEndian.Uint32(b[4:8]) ^ binary.BigEndian.Uint32(b[12:16])
	return int32(hi), int32(lo)
}
