package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskhub-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	onlineKeyPrefix = "online:"
	typingKeyPrefix = "typing:"
)

// PresenceService is the Redis-backed PresenceStore shared by every server
// instance. Liveness is a TTL on the key, refreshed from the gateway's
// pong cycle, so a crashed instance self-heals after OnlineTTL.
type PresenceService struct {
	rdb       *redis.Client
	onlineTTL time.Duration
	typingTTL time.Duration
}

func NewPresenceService(rdb *redis.Client, onlineTTL, typingTTL time.Duration) contract.PresenceStore {
	return &PresenceService{
		rdb:       rdb,
		onlineTTL: onlineTTL,
		typingTTL: typingTTL,
	}
}

func onlineKey(userId uuid.UUID) string {
	return onlineKeyPrefix + userId.String()
}

func typingKey(conversationId, userId uuid.UUID) string {
	return fmt.Sprintf("%s%s:%s", typingKeyPrefix, conversationId, userId)
}

func (s *PresenceService) SetOnline(ctx context.Context, userId uuid.UUID, connectionId string) error {
	return s.rdb.Set(ctx, onlineKey(userId), connectionId, s.onlineTTL).Err()
}

func (s *PresenceService) RefreshOnline(ctx context.Context, userId uuid.UUID) error {
	// EXPIRE on a missing key is a no-op; an offline user must not reappear.
	return s.rdb.Expire(ctx, onlineKey(userId), s.onlineTTL).Err()
}

func (s *PresenceService) SetOffline(ctx context.Context, userId uuid.UUID) error {
	return s.rdb.Del(ctx, onlineKey(userId)).Err()
}

func (s *PresenceService) IsOnline(ctx context.Context, userId uuid.UUID) (bool, error) {
	n, err := s.rdb.Exists(ctx, onlineKey(userId)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PresenceService) ListOnline(ctx context.Context) ([]uuid.UUID, error) {
	keys, err := s.scanKeys(ctx, onlineKeyPrefix+"*")
	if err != nil {
		return nil, err
	}

	users := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.Parse(strings.TrimPrefix(key, onlineKeyPrefix))
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	return users, nil
}

func (s *PresenceService) SetTyping(ctx context.Context, conversationId uuid.UUID, userId uuid.UUID) error {
	value := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return s.rdb.Set(ctx, typingKey(conversationId, userId), value, s.typingTTL).Err()
}

func (s *PresenceService) ClearTyping(ctx context.Context, conversationId uuid.UUID, userId uuid.UUID) error {
	return s.rdb.Del(ctx, typingKey(conversationId, userId)).Err()
}

func (s *PresenceService) ListTyping(ctx context.Context, conversationId uuid.UUID) ([]uuid.UUID, error) {
	prefix := typingKeyPrefix + conversationId.String() + ":"
	keys, err := s.scanKeys(ctx, prefix+"*")
	if err != nil {
		return nil, err
	}

	users := make([]uuid.UUID, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.Parse(strings.TrimPrefix(key, prefix))
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	return users, nil
}

// scanKeys uses SCAN rather than KEYS so listing stays proportional to the
// matches instead of blocking Redis on the whole keyspace.
func (s *PresenceService) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
