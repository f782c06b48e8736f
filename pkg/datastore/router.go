package datastore

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/faults"
)

// Router выполняет запрос на primary и при недоступности повторяет его
// на fallback. Не более двух физических попыток на вызов; fallback-ошибка
// возвращается вызывающему без дальнейших повторов
type Router struct {
	m   *Manager
	log zerolog.Logger
}

// NewRouter создает маршрутизатор поверх менеджера пулов
func NewRouter(m *Manager, logger zerolog.Logger) *Router {
	return &Router{m: m, log: logger}
}

// Run выполняет запрос
//
// Возвращаемые ошибки несут категорию:
//   - faults.ErrBackendUnavailable - ни одно хранилище не обслужило запрос
//   - faults.ErrQueryRejected - запрос отклонен доступной СУБД
//
// Ошибки контекста вызывающего (отмена, дедлайн) возвращаются без категории
// и не вызывают переключения на fallback
func (r *Router) Run(ctx context.Context, query string, params []any) ([]adapters.Row, error) {
	return r.run(ctx, query, params, false)
}

// RunReadOnly выполняет запрос как Run, но на каждом пуле в режиме только
// чтения: попытка изменить данные отклоняется СУБД
func (r *Router) RunReadOnly(ctx context.Context, query string, params []any) ([]adapters.Row, error) {
	return r.run(ctx, query, params, true)
}

func (r *Router) run(ctx context.Context, query string, params []any, readOnly bool) ([]adapters.Row, error) {
	state := r.m.State()

	sel := r.m.Select()
	if sel == SelectFallback {
		rows, err := r.runOn(ctx, SelectFallback, query, params, readOnly)
		return rows, r.categorize(ctx, SelectFallback, err)
	}

	rows, err := r.runOn(ctx, SelectPrimary, query, params, readOnly)
	if err == nil {
		state.setMode(ModePrimaryActive)
		return rows, nil
	}
	if ctx.Err() != nil || r.m.Classify(SelectPrimary, err) != Retryable {
		return nil, r.categorize(ctx, SelectPrimary, err)
	}

	state.setMode(ModeFallbackActive)
	failoversTotal.Inc()
	if state.markFallback() {
		r.log.Warn().
			Err(err).
			Str("primary", r.m.Adapter(SelectPrimary).Name()).
			Str("fallback", r.m.Adapter(SelectFallback).Name()).
			Msg("primary database unavailable, falling back")
	} else {
		r.log.Debug().Err(err).Msg("primary database unavailable, using fallback")
	}

	rows, err = r.runOn(ctx, SelectFallback, query, params, readOnly)
	return rows, r.categorize(ctx, SelectFallback, err)
}

// runOn - одна физическая попытка на выбранном пуле
// Соединение возвращается в пул на любом пути выхода
func (r *Router) runOn(ctx context.Context, sel Selector, query string, params []any, readOnly bool) ([]adapters.Row, error) {
	a := r.m.Adapter(sel)

	conn, err := r.m.Acquire(ctx, sel)
	if err != nil {
		queriesTotal.WithLabelValues(sel.String(), r.m.Classify(sel, err).String()).Inc()
		return nil, err
	}
	defer r.m.Release(conn)

	query = Normalize(query, a.Convention())

	var rows []adapters.Row
	if readOnly {
		rows, err = conn.QueryReadOnly(ctx, query, params...)
	} else {
		rows, err = conn.Query(ctx, query, params...)
	}
	if err != nil {
		queriesTotal.WithLabelValues(sel.String(), r.m.Classify(sel, err).String()).Inc()
		return nil, err
	}

	queriesTotal.WithLabelValues(sel.String(), "ok").Inc()
	return rows, nil
}

// categorize присваивает ошибке категорию по классификатору пула
func (r *Router) categorize(ctx context.Context, sel Selector, err error) error {
	if err == nil {
		return nil
	}

	var fe *faults.Error
	if errors.As(err, &fe) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}

	op := "query " + sel.String()
	if r.m.Classify(sel, err) == Retryable {
		return faults.New(faults.KindBackendUnavailable, op, err)
	}
	return faults.New(faults.KindQueryRejected, op, err)
}
