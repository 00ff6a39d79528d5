// Package cache implements the leaderboard cache on Redis.
package cache

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/gamify"
)

const topKey = "leaderboard:top"

// LeaderboardCache keeps the ranked top of the leaderboard in a Redis sorted
// set, scored by rank, each member a JSON-encoded entry.
type LeaderboardCache struct {
	client *redis.Client
}

var _ gamify.LeaderboardCache = (*LeaderboardCache)(nil)

func NewLeaderboardCache(conf *core.Config) (*LeaderboardCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &LeaderboardCache{client: client}, nil
}

func (c *LeaderboardCache) ReplaceTop(ctx context.Context, entries []gamify.LeaderboardEntry) error {
	members := make([]redis.Z, 0, len(entries))
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return errors.Wrap(err, "encoding entry")
		}
		members = append(members, redis.Z{Score: float64(entry.Rank.Int), Member: data})
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, topKey)
	if len(members) > 0 {
		pipe.ZAdd(ctx, topKey, members...)
	}
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "replacing cached leaderboard")
}

func (c *LeaderboardCache) TopN(ctx context.Context, n int) ([]gamify.LeaderboardEntry, error) {
	raw, err := c.client.ZRange(ctx, topKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading cached leaderboard")
	}
	if len(raw) == 0 {
		return nil, gamify.ErrCacheMiss
	}

	entries := make([]gamify.LeaderboardEntry, 0, len(raw))
	for _, member := range raw {
		var entry gamify.LeaderboardEntry
		if err = json.Unmarshal([]byte(member), &entry); err != nil {
			return nil, errors.Wrap(err, "decoding entry")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *LeaderboardCache) Close() error { return c.client.Close() }
