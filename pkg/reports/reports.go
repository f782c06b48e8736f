// Package reports выполняет ad-hoc читающие запросы отчетов через фасад хранилища.
package reports

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/datastore"
	"github.com/ruslano69/firvault/pkg/faults"
	"github.com/ruslano69/firvault/pkg/security"
)

// DefaultMaxRows - предел строк ответа по умолчанию
const DefaultMaxRows = 1000

// Result - строки отчета; Truncated, если строк было больше MaxRows
type Result struct {
	Rows      []adapters.Row `json:"rows"`
	Count     int            `json:"count"`
	Truncated bool           `json:"truncated"`
}

// Runner проверяет запрос и выполняет его в режиме только чтения
type Runner struct {
	q         datastore.ReadOnlyQuerier
	validator *security.SQLValidator
	maxRows   int
	log       zerolog.Logger
}

// NewRunner создает исполнителя; maxRows <= 0 означает DefaultMaxRows
func NewRunner(q datastore.ReadOnlyQuerier, maxRows int, logger zerolog.Logger) *Runner {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Runner{
		q:         q,
		validator: security.NewSQLValidator(),
		maxRows:   maxRows,
		log:       logger.With().Str("component", "reports").Logger(),
	}
}

// Run выполняет запрос отчета.
// Недопустимый запрос и несовпадение числа параметров - faults.ErrInvalidInput,
// до обращения к хранилищу. Прошедший проверку запрос выполняется через
// ExecuteReadOnly: изменение данных, пропущенное валидатором, отклонит СУБД.
func (r *Runner) Run(ctx context.Context, query string, params []any) (Result, error) {
	const op = "run report"

	if err := r.validator.Validate(query); err != nil {
		return Result{}, err
	}
	if want := datastore.CountPlaceholders(query); want != len(params) {
		return Result{}, faults.Newf(faults.KindInvalidInput, op,
			"query expects %d parameters, got %d", want, len(params))
	}

	rows, err := r.q.ExecuteReadOnly(ctx, query, params...)
	if err != nil {
		return Result{}, err
	}

	res := Result{Rows: rows, Count: len(rows)}
	if len(rows) > r.maxRows {
		res.Rows = rows[:r.maxRows]
		res.Count = r.maxRows
		res.Truncated = true
	}
	r.log.Debug().Int("rows", res.Count).Bool("truncated", res.Truncated).Msg("report executed")
	return res, nil
}
