package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mindhaven/mindhaven-api/internal/models"
)

const (
	keyPrefix = "mindhaven:emotions:"

	// maxObservationsPerUser bounds the per-user list; windowed detection
	// never needs more than a few weeks of daily observations.
	maxObservationsPerUser = 200
)

// RedisCache keeps each user's recent emotion observations in a redis list so
// windowed detection can read them without a round trip to the
// emotion-tracking context.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "history_cache").Logger(),
	}
}

func observationKey(userID string) string {
	return fmt.Sprintf("%s%s", keyPrefix, userID)
}

// Append records one observation and refreshes the key's TTL.
func (c *RedisCache) Append(ctx context.Context, obs models.EmotionObservation) error {
	payload, err := json.Marshal(obs)
	if err != nil {
		return errors.Wrap(err, "marshal observation")
	}

	key := observationKey(obs.UserID)
	pipe := c.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, -maxObservationsPerUser, -1)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "append observation")
	}

	c.logger.Debug().
		Str("user_id", obs.UserID).
		Str("label", obs.Label).
		Float64("confidence", obs.Confidence).
		Msg("observation cached")
	return nil
}

// Observations returns the user's cached observations at or after since.
// A missing key is an empty history, not an error.
func (c *RedisCache) Observations(ctx context.Context, userID string, since time.Time) ([]models.EmotionObservation, error) {
	entries, err := c.client.LRange(ctx, observationKey(userID), 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read observation history")
	}

	var observations []models.EmotionObservation
	for _, entry := range entries {
		var obs models.EmotionObservation
		if err := json.Unmarshal([]byte(entry), &obs); err != nil {
			c.logger.Warn().Err(err).Str("user_id", userID).Msg("dropping malformed cached observation")
			continue
		}
		if obs.Timestamp.Before(since) {
			continue
		}
		observations = append(observations, obs)
	}
	return observations, nil
}
