package fir

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/pkg/datastore"
	"github.com/ruslano69/firvault/pkg/faults"
)

// Allocator выделяет номера FIR
type Allocator struct {
	q        datastore.Querier
	stations StationLookup
	log      zerolog.Logger
}

// NewAllocator создает аллокатор
func NewAllocator(q datastore.Querier, stations StationLookup, logger zerolog.Logger) *Allocator {
	return &Allocator{q: q, stations: stations, log: logger}
}

// Allocate возвращает кандидат номера для участка и года
//
//  1. код участка (faults.ErrInvalidScope, если участка нет)
//  2. количество дел участка с created_at в этом году
//  3. кандидат: код/год/(количество+1)
//  4. проверка, что номер не занят ни одним делом (faults.ErrDuplicateIdentifier)
//
// Номер не резервируется: уникальность окончательно проверяет вставка
func (a *Allocator) Allocate(ctx context.Context, stationID int64, year int) (string, error) {
	const op = "allocate fir"

	if year < 1 || year > 9999 {
		allocationsTotal.WithLabelValues("invalid_scope").Inc()
		return "", faults.Newf(faults.KindInvalidScope, op, "year %d out of range", year)
	}

	code, ok, err := a.stations.StationCode(ctx, stationID)
	if err != nil {
		allocationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%s: station lookup: %w", op, err)
	}
	if !ok {
		allocationsTotal.WithLabelValues("invalid_scope").Inc()
		return "", faults.Newf(faults.KindInvalidScope, op, "station %d does not exist", stationID)
	}

	count, err := a.countCases(ctx, stationID, year)
	if err != nil {
		allocationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}

	candidate := Number{Code: code, Year: year, Sequence: int(count) + 1}.String()

	taken, err := a.exists(ctx, candidate)
	if err != nil {
		allocationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if taken {
		allocationsTotal.WithLabelValues("duplicate").Inc()
		a.log.Debug().Str("fir", candidate).Int64("station", stationID).Msg("fir candidate already taken")
		return "", faults.Newf(faults.KindDuplicateIdentifier, op, "fir number %s already exists", candidate)
	}

	allocationsTotal.WithLabelValues("ok").Inc()
	return candidate, nil
}

// countCases считает дела участка с created_at в [1 января year, 1 января year+1)
func (a *Allocator) countCases(ctx context.Context, stationID int64, year int) (int64, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	query, args, err := sq.Select("COUNT(*) AS n").
		From("cases").
		Where(sq.Eq{"station_id": stationID}).
		Where(sq.GtOrEq{"created_at": from}).
		Where(sq.Lt{"created_at": to}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	row, ok, err := a.q.QueryOne(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return row.Int64("n")
}

// exists проверяет номер по всей таблице дел, без учета участка и года
func (a *Allocator) exists(ctx context.Context, fir string) (bool, error) {
	query, args, err := sq.Select("1 AS found").
		From("cases").
		Where(sq.Eq{"fir_number": fir}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build uniqueness query: %w", err)
	}

	_, ok, err := a.q.QueryOne(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("check uniqueness: %w", err)
	}
	return ok, nil
}
