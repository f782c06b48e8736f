package fir

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedStations оборачивает StationLookup и кэширует коды участков в Redis.
// Код участка не меняется, поэтому кэшируются только найденные участки:
// только что созданный участок виден сразу.
type CachedStations struct {
	inner StationLookup
	rdb   *redis.Client
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedStations оборачивает inner кэшем с временем жизни ttl
func NewCachedStations(inner StationLookup, rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedStations {
	return &CachedStations{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   logger.With().Str("component", "station_cache").Logger(),
	}
}

func stationKey(stationID int64) string {
	return fmt.Sprintf("firvault:station:code:%d", stationID)
}

// StationCode реализует StationLookup
func (c *CachedStations) StationCode(ctx context.Context, stationID int64) (string, bool, error) {
	key := stationKey(stationID)

	code, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		return code, true, nil
	}
	if !errors.Is(err, redis.Nil) {
		// Redis недоступен - идем в БД (деградация, не ошибка)
		c.log.Debug().Err(err).Int64("station", stationID).Msg("station cache read failed")
	}

	code, ok, err := c.inner.StationCode(ctx, stationID)
	if err != nil || !ok {
		return code, ok, err
	}

	// best-effort
	_ = c.rdb.Set(ctx, key, code, c.ttl).Err()
	return code, true, nil
}
