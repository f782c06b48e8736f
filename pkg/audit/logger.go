package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultBufferSize - емкость канала асинхронного режима
const DefaultBufferSize = 1000

// ErrClosed - журнал закрыт
var ErrClosed = errors.New("audit trail is closed")

// Config - конфигурация журнала
type Config struct {
	// Async - запись в appender из отдельной горутины
	// При переполнении буфера запись выполняется синхронно: записи не теряются
	Async bool

	// BufferSize - емкость канала асинхронного режима
	BufferSize int

	// OnError вызывается при ошибке записи в асинхронном режиме
	OnError func(error)
}

// Trail - журнал доступа
type Trail struct {
	appender Appender
	cfg      Config

	entries chan *Entry
	done    chan struct{}
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewTrail создает журнал поверх appender
func NewTrail(cfg Config, appender Appender) *Trail {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}

	t := &Trail{
		appender: appender,
		cfg:      cfg,
		done:     make(chan struct{}),
	}

	if cfg.Async {
		t.entries = make(chan *Entry, cfg.BufferSize)
		t.wg.Add(1)
		go t.process()
	}
	return t
}

// Record записывает запись
func (t *Trail) Record(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed
	}

	if t.cfg.Async {
		select {
		case t.entries <- entry:
			return nil
		default:
			// Буфер переполнен - пишем синхронно
		}
	}
	return t.appender.Append(ctx, entry)
}

// process - запись из канала в асинхронном режиме
func (t *Trail) process() {
	defer t.wg.Done()

	for {
		select {
		case entry := <-t.entries:
			t.write(entry)
		case <-t.done:
			// Дописываем оставшееся
			for {
				select {
				case entry := <-t.entries:
					t.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (t *Trail) write(entry *Entry) {
	if err := t.appender.Append(context.Background(), entry); err != nil && t.cfg.OnError != nil {
		t.cfg.OnError(err)
	}
}

// Close дописывает буфер и закрывает appender
func (t *Trail) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	close(t.done)
	t.wg.Wait()

	return t.appender.Close()
}
