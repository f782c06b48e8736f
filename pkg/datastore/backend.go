package datastore

import (
	"context"

	"github.com/ruslano69/firvault/pkg/adapters"
)

// Compile-time check
var _ Querier = (*Backend)(nil)

// Backend - один пул без переключения на другой
// Нужен операциям, которые выполняются на каждом пуле отдельно и в его
// собственном диалекте (применение схемы)
type Backend struct {
	router *Router
	sel    Selector
}

// Backends возвращает настроенные пулы: primary (если есть), затем fallback
func (db *DB) Backends() []*Backend {
	var out []*Backend
	if db.m.HasPrimary() {
		out = append(out, &Backend{router: db.router, sel: SelectPrimary})
	}
	return append(out, &Backend{router: db.router, sel: SelectFallback})
}

// Role возвращает роль пула: "primary" или "fallback"
func (b *Backend) Role() string {
	return b.sel.String()
}

// Name возвращает логическое имя пула
func (b *Backend) Name() string {
	return b.router.m.Adapter(b.sel).Name()
}

// Type возвращает тип СУБД пула (postgres, sqlite, mysql, mssql)
func (b *Backend) Type() string {
	return b.router.m.Adapter(b.sel).GetDatabaseType()
}

// Execute выполняет запрос только на этом пуле
// Ошибки несут те же категории, что и у DB.Execute
func (b *Backend) Execute(ctx context.Context, query string, params ...any) ([]adapters.Row, error) {
	if err := checkParams("execute "+b.sel.String(), query, params); err != nil {
		return nil, err
	}
	rows, err := b.router.runOn(ctx, b.sel, query, params, false)
	return nonNil(rows, b.router.categorize(ctx, b.sel, err))
}

// QueryOne возвращает первую строку результата на этом пуле
func (b *Backend) QueryOne(ctx context.Context, query string, params ...any) (adapters.Row, bool, error) {
	rows, err := b.Execute(ctx, query, params...)
	if err != nil || len(rows) == 0 {
		return nil, false, err
	}
	return rows[0], true, nil
}
