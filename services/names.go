package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"whoami/game"

	"github.com/redis/go-redis/v9"
)

// NameLookup reads a display name from durable storage.
type NameLookup interface {
	DisplayName(userID int64) (string, error)
}

// NameResolver turns participant ids into display names.
// Lookups go memory, then Redis, then the store.
type NameResolver struct {
	lookup NameLookup
	redis  *redis.Client
	ttl    time.Duration

	cache map[int64]string
	mutex sync.RWMutex
}

func NewNameResolver(lookup NameLookup, client *redis.Client) *NameResolver {
	return &NameResolver{
		lookup: lookup,
		redis:  client,
		ttl:    24 * time.Hour,
		cache:  make(map[int64]string),
	}
}

func BotName(id int64) string {
	return fmt.Sprintf("AI Bot %d", -id)
}

func (r *NameResolver) Name(ctx context.Context, id int64) string {
	if id < 0 {
		return BotName(id)
	}

	r.mutex.RLock()
	name, ok := r.cache[id]
	r.mutex.RUnlock()
	if ok {
		return name
	}

	key := fmt.Sprintf("username:%d", id)
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, key).Result(); err == nil && cached != "" {
			r.remember(id, cached)
			return cached
		} else if err != nil && err != redis.Nil {
			log.Printf("Redis error resolving name for %d: %v", id, err)
		}
	}

	name = fmt.Sprintf("Player %d", id)
	if r.lookup != nil {
		if stored, err := r.lookup.DisplayName(id); err == nil && stored != "" {
			name = stored
		}
	}
	if r.redis != nil {
		if err := r.redis.Set(ctx, key, name, r.ttl).Err(); err != nil {
			log.Printf("Failed to cache name for %d: %v", id, err)
		}
	}
	r.remember(id, name)
	return name
}

// Forget drops a cached name, or every cached name when id is zero.
func (r *NameResolver) Forget(id int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if id == 0 {
		r.cache = make(map[int64]string)
		return
	}
	delete(r.cache, id)
}

func (r *NameResolver) remember(id int64, name string) {
	r.mutex.Lock()
	r.cache[id] = name
	r.mutex.Unlock()
}

// MentionedIDs lists the participants an intent talks about, for labelling.
func MentionedIDs(intent game.Intent) []int64 {
	switch i := intent.(type) {
	case game.RolesDealt:
		ids := []int64{i.FirstActor}
		for id := range i.OthersRoles {
			ids = append(ids, id)
		}
		return ids
	case game.QuestionBroadcast:
		return []int64{i.AskerID}
	case game.BallotRecorded:
		return []int64{i.VoterID}
	case game.VoteResult:
		return []int64{i.AskerID, i.NextActorID}
	case game.TurnNotice:
		return []int64{i.ActorID}
	case game.GuessFailed:
		return []int64{i.GuesserID, i.NextActorID}
	case game.GameEnd:
		ids := []int64{i.WinnerID}
		for id := range i.AllRoles {
			ids = append(ids, id)
		}
		return ids
	case game.ParticipantLeft:
		ids := []int64{i.DepartedID}
		if i.NextActorID != nil {
			ids = append(ids, *i.NextActorID)
		}
		if i.Winner != nil {
			ids = append(ids, i.Winner.WinnerID)
		}
		return ids
	}
	return nil
}
