package events

import (
	"context"
	"fmt"
	"time"
)

// Publisher - получатель событий
type Publisher interface {
	// Publish отправляет событие
	Publish(ctx context.Context, ev Event) error

	// Close закрывает соединение
	Close() error

	// GetType возвращает тип публикатора (redis, rabbitmq, kafka, none)
	GetType() string
}

// Config содержит параметры подключения публикатора
type Config struct {
	Type string `yaml:"type"` // none, redis, rabbitmq, kafka

	// RabbitMQ
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	Queue    string `yaml:"queue"`
	UseTLS   bool   `yaml:"tls"`

	// Kafka
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	// Redis
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	StateTTL      time.Duration `yaml:"state_ttl"`
}

// NewPublisher создает публикатор по конфигурации и подключается к брокеру
func NewPublisher(ctx context.Context, cfg Config) (Publisher, error) {
	switch cfg.Type {
	case "", "none":
		return Nop{}, nil
	case "redis":
		return NewRedisPublisher(cfg)
	case "rabbitmq":
		p, err := NewRabbitMQ(cfg)
		if err != nil {
			return nil, err
		}
		if err := p.Connect(ctx); err != nil {
			return nil, err
		}
		return p, nil
	case "kafka":
		p, err := NewKafka(cfg)
		if err != nil {
			return nil, err
		}
		if err := p.Connect(ctx); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported events type: %s (supported: none, redis, rabbitmq, kafka)", cfg.Type)
	}
}

// Nop отбрасывает события
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
func (Nop) GetType() string                      { return "none" }
