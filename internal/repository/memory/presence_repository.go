package memory

import (
	"context"
	"strings"
	"time"

	"taskhub-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// PresenceRepository is the in-process fallback PresenceStore. It is used
// when Redis is unreachable at startup (single-instance degraded mode) and
// by tests. Same key shapes and TTL behavior as the Redis store, minus the
// cross-process visibility.
type PresenceRepository struct {
	cache     *cache.Cache
	onlineTTL time.Duration
	typingTTL time.Duration
}

func NewPresenceRepository(onlineTTL, typingTTL time.Duration) contract.PresenceStore {
	// Purge interval only affects memory reclaim; Items() already filters
	// expired entries.
	c := cache.New(onlineTTL, 1*time.Minute)
	return &PresenceRepository{
		cache:     c,
		onlineTTL: onlineTTL,
		typingTTL: typingTTL,
	}
}

func (r *PresenceRepository) SetOnline(_ context.Context, userId uuid.UUID, connectionId string) error {
	r.cache.Set("online:"+userId.String(), connectionId, r.onlineTTL)
	return nil
}

func (r *PresenceRepository) RefreshOnline(_ context.Context, userId uuid.UUID) error {
	key := "online:" + userId.String()
	if v, found := r.cache.Get(key); found {
		r.cache.Set(key, v, r.onlineTTL)
	}
	return nil
}

func (r *PresenceRepository) SetOffline(_ context.Context, userId uuid.UUID) error {
	r.cache.Delete("online:" + userId.String())
	return nil
}

func (r *PresenceRepository) IsOnline(_ context.Context, userId uuid.UUID) (bool, error) {
	_, found := r.cache.Get("online:" + userId.String())
	return found, nil
}

func (r *PresenceRepository) ListOnline(_ context.Context) ([]uuid.UUID, error) {
	return r.listByPrefix("online:"), nil
}

func (r *PresenceRepository) SetTyping(_ context.Context, conversationId uuid.UUID, userId uuid.UUID) error {
	key := "typing:" + conversationId.String() + ":" + userId.String()
	r.cache.Set(key, time.Now().UnixMilli(), r.typingTTL)
	return nil
}

func (r *PresenceRepository) ClearTyping(_ context.Context, conversationId uuid.UUID, userId uuid.UUID) error {
	r.cache.Delete("typing:" + conversationId.String() + ":" + userId.String())
	return nil
}

func (r *PresenceRepository) ListTyping(_ context.Context, conversationId uuid.UUID) ([]uuid.UUID, error) {
	return r.listByPrefix("typing:" + conversationId.String() + ":"), nil
}

func (r *PresenceRepository) listByPrefix(prefix string) []uuid.UUID {
	var users []uuid.UUID
	for key := range r.cache.Items() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		id, err := uuid.Parse(strings.TrimPrefix(key, prefix))
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	return users
}
