package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creditmesh/chitengine/internal/domain"
)

// ScoreCache implements domain.ScoreCache: JSON score snapshots keyed
// per account with a short TTL.
type ScoreCache struct {
	rdb *redis.Client
}

// NewScoreCache creates a ScoreCache backed by the given Client.
func NewScoreCache(c *Client) *ScoreCache {
	return &ScoreCache{rdb: c.Underlying()}
}

func scoreKey(account domain.Account) string {
	return "score:" + account.Hex()
}

// Get returns the cached snapshot for account, with a miss reported as
// (zero, false, nil).
func (c *ScoreCache) Get(ctx context.Context, account domain.Account) (domain.ScoreSnapshot, bool, error) {
	data, err := c.rdb.Get(ctx, scoreKey(account)).Bytes()
	if err == redis.Nil {
		return domain.ScoreSnapshot{}, false, nil
	}
	if err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("redis: get score %s: %w", account, err)
	}

	var snap domain.ScoreSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.ScoreSnapshot{}, false, fmt.Errorf("redis: decode score %s: %w", account, err)
	}
	return snap, true, nil
}

// Set stores the snapshot with the given TTL.
func (c *ScoreCache) Set(ctx context.Context, snap domain.ScoreSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: encode score %s: %w", snap.Account, err)
	}
	if err := c.rdb.Set(ctx, scoreKey(snap.Account), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set score %s: %w", snap.Account, err)
	}
	return nil
}

// Invalidate drops the cached snapshots for the given accounts.
func (c *ScoreCache) Invalidate(ctx context.Context, accounts ...domain.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	keys := make([]string, len(accounts))
	for i, a := range accounts {
		keys[i] = scoreKey(a)
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate scores: %w", err)
	}
	return nil
}
