package tournamentdomain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEventLockKeys(t *testing.T) {
	id := uuid.MustParse("00000001-0000-0002-0000-000300000004")

	k1, k2 := EventLockKeys(id)
	assert.Equal(t, int32(1^3), k1)
	assert.Equal(t, int32(2^4), k2)

	again1, again2 := EventLockKeys(id)
	assert.Equal(t, k1, again1)
	assert.Equal(t, k2, again2)

	other1, other2 := EventLockKeys(uuid.New())
	assert.False(t, other1 == k1 && other2 == k2)
}

func TestGlobalLockKeysDistinct(t *testing.T) {
	keys := map[int64]bool{MatchmakingLockKey: true, HousekeepingLockKey: true, RoundSweepLockKey: true}
	assert.Len(t, keys, 3)
}
