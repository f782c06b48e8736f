package audit

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Appender - получатель записей журнала
type Appender interface {
	// Append записывает запись
	Append(ctx context.Context, entry *Entry) error

	// Close закрывает appender
	Close() error
}

// MultiAppender - запись в несколько appenders
// Ошибка одного не мешает записи в остальные
type MultiAppender struct {
	appenders []Appender
}

// NewMultiAppender создает multi appender
func NewMultiAppender(appenders ...Appender) *MultiAppender {
	return &MultiAppender{appenders: appenders}
}

// Append записывает во все appenders
func (ma *MultiAppender) Append(ctx context.Context, entry *Entry) error {
	var errs []error
	for _, a := range ma.appenders {
		if err := a.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close закрывает все appenders
func (ma *MultiAppender) Close() error {
	var errs []error
	for _, a := range ma.appenders {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogAppender пишет записи в zerolog
// Отказы - на уровне Warn, остальное - Info
type LogAppender struct {
	log zerolog.Logger
}

// NewLogAppender создает appender поверх logger
func NewLogAppender(logger zerolog.Logger) *LogAppender {
	return &LogAppender{log: logger}
}

// Append реализует Appender
func (la *LogAppender) Append(_ context.Context, e *Entry) error {
	ev := la.log.Info()
	if e.Outcome == OutcomeDenied {
		ev = la.log.Warn()
	}
	ev.Str("audit_id", e.ID).
		Str("role", e.Role).
		Str("user", e.User).
		Str("action", e.Action).
		Str("resource", e.Resource).
		Str("outcome", string(e.Outcome)).
		Int("status", e.Status).
		Str("remote", e.RemoteAddr).
		Msg("audit")
	return nil
}

// Close реализует Appender
func (la *LogAppender) Close() error { return nil }
