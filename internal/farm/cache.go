package farm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/PennybagsCX/Dogepump-Dogechain-Memecoin-Launcher-sub005/internal/models"
)

const leaderboardKey = "dogepump:farms:leaderboard"

// LeaderboardCache keeps the staked-ranked farm list in Redis so the hot
// leaderboard read does not hit the database on every request. Every
// failure degrades to a cache miss; Redis being down never fails a read.
type LeaderboardCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

// NewLeaderboardCache creates a leaderboard cache with the given TTL
func NewLeaderboardCache(rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *LeaderboardCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LeaderboardCache{rdb: rdb, ttl: ttl, log: log}
}

// GetLeaderboard returns the cached ranking and whether it was present
func (c *LeaderboardCache) GetLeaderboard() ([]*models.Farm, bool) {
	raw, err := c.rdb.Get(context.Background(), leaderboardKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Debug("Leaderboard cache read failed")
		}
		return nil, false
	}

	var farms []*models.Farm
	if err := json.Unmarshal(raw, &farms); err != nil {
		c.log.WithError(err).Warn("Discarding corrupt leaderboard cache entry")
		return nil, false
	}
	return farms, true
}

// SetLeaderboard stores the ranking for the cache TTL
func (c *LeaderboardCache) SetLeaderboard(farms []*models.Farm) {
	raw, err := json.Marshal(farms)
	if err != nil {
		c.log.WithError(err).Warn("Failed to encode leaderboard for cache")
		return
	}
	if err := c.rdb.Set(context.Background(), leaderboardKey, raw, c.ttl).Err(); err != nil {
		c.log.WithError(err).Debug("Leaderboard cache write failed")
	}
}

// InvalidateLeaderboard drops the cached ranking after a mutation
func (c *LeaderboardCache) InvalidateLeaderboard() {
	if err := c.rdb.Del(context.Background(), leaderboardKey).Err(); err != nil {
		c.log.WithError(err).Debug("Leaderboard cache invalidation failed")
	}
}
