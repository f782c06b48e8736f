package datastore

import (
	"context"

	"github.com/ruslano69/firvault/pkg/adapters"
)

// StatusUnreachable - публичное описание недоступного пула
// Текст ошибки драйвера (адрес, пользователь) пишется только в лог
const StatusUnreachable = "unreachable"

// BackendHealth - состояние одного пула
type BackendHealth struct {
	Name  string             `json:"name"`
	Type  string             `json:"type"`
	Up    bool               `json:"up"`
	Error string             `json:"error,omitempty"`
	Pool  adapters.PoolStats `json:"pool"`
}

// HealthReport - состояние слоя доступа к данным
type HealthReport struct {
	Healthy  bool           `json:"healthy"`
	Mode     string         `json:"mode"`
	Primary  *BackendHealth `json:"primary,omitempty"`
	Fallback BackendHealth  `json:"fallback"`
}

// Health опрашивает primary (если настроен), затем fallback
// Healthy, если запросы может обслужить хотя бы один пул
// Причина недоступности пула пишется в лог, в отчет попадает только статус
func (db *DB) Health(ctx context.Context) HealthReport {
	report := HealthReport{Mode: db.Mode().String()}

	if db.m.HasPrimary() {
		h := db.ping(ctx, db.m.Adapter(SelectPrimary))
		report.Primary = &h
		report.Healthy = h.Up
	}

	report.Fallback = db.ping(ctx, db.m.Adapter(SelectFallback))
	report.Healthy = report.Healthy || report.Fallback.Up
	return report
}

// TestConnection - проверка доступности, никогда не возвращает ошибку
func (db *DB) TestConnection(ctx context.Context) bool {
	report := db.Health(ctx)

	if report.Primary != nil && report.Primary.Up {
		db.logUp(*report.Primary)
	}
	if report.Fallback.Up {
		db.logUp(report.Fallback)
	}

	return report.Healthy
}

func (db *DB) ping(ctx context.Context, a adapters.Adapter) BackendHealth {
	h := BackendHealth{
		Name: a.Name(),
		Type: a.GetDatabaseType(),
		Up:   true,
	}
	if err := a.Ping(ctx); err != nil {
		h.Up = false
		h.Error = StatusUnreachable
		db.log.Warn().Err(err).Str("backend", h.Name).Str("type", h.Type).Msg("database connection failed")
	}
	h.Pool = a.Stats()
	return h
}

func (db *DB) logUp(h BackendHealth) {
	db.log.Info().Str("backend", h.Name).Str("type", h.Type).Msg("database connection ok")
}
