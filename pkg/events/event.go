// Package events публикует события о делах во внешние системы:
// Redis (SET + PUBLISH), RabbitMQ, Apache Kafka.
//
// Публикация - best effort: дело уже сохранено, и ошибка брокера
// не откатывает его создание.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Типы событий
const (
	TypeCaseCreated = "case.created"
	TypePersonAdded = "case.person_added"
)

// Event - событие о деле
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	// Key - ключ партиционирования и имя Redis-ключа (номер FIR)
	Key string `json:"key"`

	Data any `json:"data"`
}

// New создает событие с уникальным ID
func New(eventType, key string, data any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Key:        key,
		Data:       data,
	}
}
