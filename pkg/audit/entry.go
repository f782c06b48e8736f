// Package audit ведет журнал доступа к делам: кто (роль, пользователь),
// что (действие, ресурс) и с каким исходом.
//
// Журнал пишется в файл JSON lines и/или в zerolog, синхронно или через
// буферизованный канал (Trail в асинхронном режиме).
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome - исход запроса
type Outcome string

const (
	// OutcomeAllowed - запрос разрешен и выполнен
	OutcomeAllowed Outcome = "allowed"

	// OutcomeDenied - отказ проверки прав
	OutcomeDenied Outcome = "denied"

	// OutcomeFailed - права есть, но запрос завершился ошибкой
	OutcomeFailed Outcome = "failed"
)

// Entry - запись журнала доступа
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Role       string    `json:"role"`
	User       string    `json:"user,omitempty"`
	Action     string    `json:"action"`             // "cases.create"
	Resource   string    `json:"resource,omitempty"` // номер FIR, "case:12", "station:KTM"
	Outcome    Outcome   `json:"outcome"`
	Status     int       `json:"status,omitempty"` // HTTP статус
	Error      string    `json:"error,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
}

// NewEntry создает запись с новым ID и текущим временем (UTC)
func NewEntry(role, action string, outcome Outcome) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Role:      role,
		Action:    action,
		Outcome:   outcome,
	}
}

// WithUser - пользователь
func (e *Entry) WithUser(user string) *Entry {
	e.User = user
	return e
}

// WithResource - затронутый ресурс
func (e *Entry) WithResource(resource string) *Entry {
	e.Resource = resource
	return e
}

// WithStatus - HTTP статус ответа
func (e *Entry) WithStatus(status int) *Entry {
	e.Status = status
	return e
}

// WithError - текст ошибки (nil игнорируется)
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithRemoteAddr - адрес клиента
func (e *Entry) WithRemoteAddr(addr string) *Entry {
	e.RemoteAddr = addr
	return e
}

// ToJSON сериализует запись
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// String - компактное текстовое представление
func (e *Entry) String() string {
	s := fmt.Sprintf("[%s] %s %s %s",
		e.Timestamp.Format(time.RFC3339), e.Role, e.Action, e.Outcome)
	if e.Resource != "" {
		s += " " + e.Resource
	}
	if e.Error != "" {
		s += " error=" + e.Error
	}
	return s
}
