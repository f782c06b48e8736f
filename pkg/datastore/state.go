package datastore

import (
	"fmt"
	"sync/atomic"
)

// Mode - режим работы слоя доступа к данным
type Mode int32

const (
	// ModePrimaryUnset - primary не настроен, все запросы идут в fallback
	ModePrimaryUnset Mode = iota

	// ModePrimaryActive - последний запрос обслужен primary
	ModePrimaryActive

	// ModeFallbackActive - последний запрос переключен на fallback
	ModeFallbackActive
)

// String - строковое представление режима
func (m Mode) String() string {
	switch m {
	case ModePrimaryUnset:
		return "primary_unset"
	case ModePrimaryActive:
		return "primary_active"
	case ModeFallbackActive:
		return "fallback_active"
	default:
		return fmt.Sprintf("unknown(%d)", int32(m))
	}
}

// State - состояние процесса: текущий режим и флаги однократных предупреждений
// Создается один раз при старте и передается в Manager; тесты создают свои экземпляры
type State struct {
	mode           atomic.Int32
	unsetWarned    atomic.Bool
	fallbackWarned atomic.Bool
	failovers      atomic.Int64
}

// NewState создает состояние в режиме initial
func NewState(initial Mode) *State {
	s := &State{}
	s.mode.Store(int32(initial))
	return s
}

// Mode возвращает текущий режим
func (s *State) Mode() Mode {
	return Mode(s.mode.Load())
}

func (s *State) setMode(m Mode) {
	s.mode.Store(int32(m))
}

// markPrimaryUnset возвращает true только для первого вызова за время жизни State
func (s *State) markPrimaryUnset() bool {
	return s.unsetWarned.CompareAndSwap(false, true)
}

// markFallback учитывает переключение и возвращает true только для первого
func (s *State) markFallback() bool {
	s.failovers.Add(1)
	return s.fallbackWarned.CompareAndSwap(false, true)
}

// Failovers возвращает число переключений на fallback
func (s *State) Failovers() int64 {
	return s.failovers.Load()
}
