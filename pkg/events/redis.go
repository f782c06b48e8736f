package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStateTTL - время жизни последнего состояния в Redis
const DefaultStateTTL = 24 * time.Hour

// RedisPublisher публикует события в Redis
//
// Redis-ключи:
//
//	SET     firvault:case:<fir>:last  <JSON>  EX <ttl>  - последнее событие по делу
//	PUBLISH firvault:events:<type>    <JSON>            - для подписчиков
type RedisPublisher struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPublisher создает Redis publisher на основе конфигурации
func NewRedisPublisher(cfg Config) (*RedisPublisher, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address is required for redis events")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisPublisherWithClient(client, cfg.StateTTL), nil
}

// NewRedisPublisherWithClient использует готовый клиент
func NewRedisPublisherWithClient(client *redis.Client, ttl time.Duration) *RedisPublisher {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisPublisher{client: client, ttl: ttl}
}

// StateKey - ключ последнего события по делу
func StateKey(key string) string {
	return fmt.Sprintf("firvault:case:%s:last", key)
}

// Channel - канал событий типа eventType
func Channel(eventType string) string {
	return "firvault:events:" + eventType
}

// Publish публикует событие:
//   - SET firvault:case:<fir>:last <JSON> EX <ttl> → для опроса (polling)
//   - PUBLISH firvault:events:<type> <JSON>        → для подписки (pub/sub)
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if ev.Key != "" {
		if err := p.client.Set(ctx, StateKey(ev.Key), payload, p.ttl).Err(); err != nil {
			return fmt.Errorf("redis SET failed: %w", err)
		}
	}

	if err := p.client.Publish(ctx, Channel(ev.Type), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Close закрывает соединение с Redis
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// GetType возвращает тип публикатора
func (p *RedisPublisher) GetType() string {
	return "redis"
}
