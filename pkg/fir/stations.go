package fir

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/ruslano69/firvault/pkg/datastore"
)

// StationLookup возвращает короткий код участка; ok == false, если участка нет
type StationLookup interface {
	StationCode(ctx context.Context, stationID int64) (code string, ok bool, err error)
}

// DBStations - StationLookup поверх таблицы stations
type DBStations struct {
	q datastore.Querier
}

// NewDBStations создает поиск участков через фасад
func NewDBStations(q datastore.Querier) *DBStations {
	return &DBStations{q: q}
}

// StationCode реализует StationLookup
func (s *DBStations) StationCode(ctx context.Context, stationID int64) (string, bool, error) {
	query, args, err := sq.Select("code").
		From("stations").
		Where(sq.Eq{"id": stationID}).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build station query: %w", err)
	}

	row, ok, err := s.q.QueryOne(ctx, query, args...)
	if err != nil || !ok {
		return "", false, err
	}
	return row.String("code"), true, nil
}
