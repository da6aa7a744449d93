package game

import (
	"log"
	"math/rand"
	"time"
)

// Rand is the random source used for dealing roles and by bot policies.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// AssignRoles deals one role per participant from pool.
// When the pool is smaller than the participant list it is tiled first, so roles
// repeat once the pool runs out.
func AssignRoles(participantIDs []int64, pool []string, rng Rand) (map[int64]string, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyRolePool
	}

	candidates := make([]string, 0, len(pool))
	candidates = append(candidates, pool...)
	if len(pool) < len(participantIDs) {
		log.Printf("roles: not enough roles, need %d, have %d; repeating pool", len(participantIDs), len(pool))
		for len(candidates) < len(participantIDs) {
			candidates = append(candidates, pool...)
		}
	}

	// partial Fisher-Yates: the first k slots are a uniform sample without replacement
	k := len(participantIDs)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	selected := candidates[:k]
	rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	roles := make(map[int64]string, k)
	for i, id := range participantIDs {
		roles[id] = selected[i]
	}
	return roles, nil
}

func newClockRand() Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
