package datastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/faults"
)

// Selector - выбор пула
type Selector int

const (
	SelectPrimary Selector = iota
	SelectFallback
)

// String - строковое представление выбора
func (s Selector) String() string {
	if s == SelectPrimary {
		return "primary"
	}
	return "fallback"
}

// Manager владеет двумя пулами: primary (необязательный) и fallback (всегда есть)
// Лимит соединений и таймаут простоя обеспечивает пул адаптера:
// вызывающий сверх MaxConns ждет в очереди пула, а не получает ошибку
type Manager struct {
	primary  adapters.Adapter
	fallback adapters.Adapter

	classifiers [2]*Classifier
	state       *State
	log         zerolog.Logger
}

// NewManager создает менеджер пулов
// primary может быть nil: тогда все запросы идут в fallback
func NewManager(primary, fallback adapters.Adapter, state *State, logger zerolog.Logger) (*Manager, error) {
	if fallback == nil {
		return nil, fmt.Errorf("fallback pool is required")
	}
	if state == nil {
		initial := ModePrimaryActive
		if primary == nil {
			initial = ModePrimaryUnset
		}
		state = NewState(initial)
	}

	m := &Manager{
		primary:  primary,
		fallback: fallback,
		state:    state,
		log:      logger,
	}
	m.classifiers[SelectFallback] = NewClassifier(fallback.IsConnectionException)
	if primary != nil {
		m.classifiers[SelectPrimary] = NewClassifier(primary.IsConnectionException)
	}
	return m, nil
}

// HasPrimary сообщает, настроен ли primary
func (m *Manager) HasPrimary() bool {
	return m.primary != nil
}

// State возвращает состояние процесса
func (m *Manager) State() *State {
	return m.state
}

// Select возвращает пул, с которого начинается запрос
// Без primary первый вызов пишет предупреждение, последующие молча выбирают fallback
func (m *Manager) Select() Selector {
	if m.primary != nil {
		return SelectPrimary
	}

	m.state.setMode(ModePrimaryUnset)
	if m.state.markPrimaryUnset() {
		m.log.Warn().
			Str("fallback", m.fallback.Name()).
			Str("type", m.fallback.GetDatabaseType()).
			Msg("primary database is not configured, using fallback pool")
	}
	return SelectFallback
}

// Adapter возвращает адаптер выбранного пула (nil для ненастроенного primary)
func (m *Manager) Adapter(sel Selector) adapters.Adapter {
	if sel == SelectPrimary {
		return m.primary
	}
	return m.fallback
}

// Classify классифицирует ошибку с учетом детектора выбранного пула
func (m *Manager) Classify(sel Selector, err error) Class {
	c := m.classifiers[sel]
	if c == nil {
		c = NewClassifier()
	}
	return c.Classify(err)
}

// Acquire выдает соединение из выбранного пула
// Недоступность СУБД возвращается как faults.ErrBackendUnavailable;
// прочие ошибки (например, отказ в аутентификации) - как есть
func (m *Manager) Acquire(ctx context.Context, sel Selector) (adapters.Conn, error) {
	a := m.Adapter(sel)
	if a == nil {
		return nil, faults.Newf(faults.KindBackendUnavailable, "acquire "+sel.String(), "pool is not configured")
	}

	conn, err := a.Acquire(ctx)
	if err != nil {
		if ctx.Err() == nil && m.Classify(sel, err) == Retryable {
			return nil, faults.New(faults.KindBackendUnavailable, "acquire "+a.Name(), err)
		}
		return nil, fmt.Errorf("acquire %s: %w", a.Name(), err)
	}
	return conn, nil
}

// Release возвращает соединение в пул
func (m *Manager) Release(conn adapters.Conn) {
	if conn != nil {
		conn.Release()
	}
}

// Close закрывает оба пула
func (m *Manager) Close() error {
	var errs []error
	if m.primary != nil {
		if err := m.primary.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close primary: %w", err))
		}
	}
	if err := m.fallback.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close fallback: %w", err))
	}
	return errors.Join(errs...)
}
