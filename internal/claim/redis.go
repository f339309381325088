package claim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dockmatch/internal/domain"
	"dockmatch/internal/port"
)

const (
	claimKeyPrefix = "dockmatch:claim:"
	lockKeyPrefix  = "dockmatch:claimlock:"
	lockTTL        = 5 * time.Second
)

type redisStore struct {
	rdb    *redis.Client
	locker *redislock.Client
}

// NewRedisStore creates a Redis-backed ClaimStore shared across instances.
// Claims are plain SETNX keys; release is guarded by a short redislock so a
// concurrent claim cannot slip between the ownership check and the delete.
func NewRedisStore(rdb *redis.Client) port.ClaimStore {
	return &redisStore{rdb: rdb, locker: redislock.New(rdb)}
}

func (s *redisStore) Claim(ctx context.Context, noteID, invoiceID uuid.UUID) error {
	key := claimKeyPrefix + noteID.String()
	set, err := s.rdb.SetNX(ctx, key, invoiceID.String(), 0).Result()
	if err != nil {
		return fmt.Errorf("claim.Redis.Claim: %w", err)
	}
	if set {
		return nil
	}
	holder, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("claim.Redis.Claim read holder: %w", err)
	}
	if holder == invoiceID.String() {
		return nil
	}
	return fmt.Errorf("%w: note %s held by invoice %s", domain.ErrNoteAlreadyClaimed, noteID, holder)
}

func (s *redisStore) Release(ctx context.Context, noteID, invoiceID uuid.UUID) error {
	lock, err := s.locker.Obtain(ctx, lockKeyPrefix+noteID.String(), lockTTL, nil)
	if err != nil {
		return fmt.Errorf("claim.Redis.Release lock: %w", err)
	}
	defer func() { _ = lock.Release(ctx) }()

	key := claimKeyPrefix + noteID.String()
	holder, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("claim.Redis.Release read holder: %w", err)
	}
	if holder != invoiceID.String() {
		return nil
	}
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("claim.Redis.Release delete: %w", err)
	}
	return nil
}

func (s *redisStore) Holder(ctx context.Context, noteID uuid.UUID) (uuid.UUID, bool, error) {
	holder, err := s.rdb.Get(ctx, claimKeyPrefix+noteID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("claim.Redis.Holder: %w", err)
	}
	id, err := uuid.Parse(holder)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("claim.Redis.Holder parse %q: %w", holder, err)
	}
	return id, true, nil
}
