package cases

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/adapters/mssql"
	"github.com/ruslano69/firvault/pkg/adapters/mysql"
	"github.com/ruslano69/firvault/pkg/adapters/postgres"
	"github.com/ruslano69/firvault/pkg/adapters/sqlite"
	"github.com/ruslano69/firvault/pkg/datastore"
	"github.com/ruslano69/firvault/pkg/faults"
)

var caseColumns = []string{
	"id", "fir_number", "station_id", "title", "description", "status", "created_by", "created_at",
}

var personColumns = []string{
	"id", "case_id", "full_name", "role", "contact", "created_at",
}

// Station - участок
type Station struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Repository - доступ к таблицам stations, cases, persons через фасад
type Repository struct {
	q datastore.Querier
}

// NewRepository создает репозиторий
func NewRepository(q datastore.Querier) *Repository {
	return &Repository{q: q}
}

// ApplySchema создает таблицы и индексы через фасад репозитория
func (r *Repository) ApplySchema(ctx context.Context, dialect string) error {
	return ApplySchema(ctx, r.q, dialect)
}

// CreateStation добавляет участок
func (r *Repository) CreateStation(ctx context.Context, code, name string) (Station, error) {
	query, args, err := sq.Insert("stations").
		Columns("code", "name").
		Values(code, name).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return Station{}, fmt.Errorf("build insert: %w", err)
	}

	row, _, err := r.q.QueryOne(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return Station{}, faults.Newf(faults.KindInvalidInput, "create station", "station code %s already exists", code)
		}
		return Station{}, err
	}

	id, err := row.Int64("id")
	if err != nil {
		return Station{}, err
	}
	return Station{ID: id, Code: code, Name: name}, nil
}

// Stations возвращает все участки
func (r *Repository) Stations(ctx context.Context) ([]Station, error) {
	query, args, err := sq.Select("id", "code", "name").From("stations").OrderBy("code").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	return datastore.ExecuteAs(ctx, r.q, func(row adapters.Row) (Station, error) {
		id, err := row.Int64("id")
		if err != nil {
			return Station{}, err
		}
		return Station{ID: id, Code: row.String("code"), Name: row.String("name")}, nil
	}, query, args...)
}

// InsertCase вставляет дело с уже выделенным номером
// Занятый номер (UNIQUE на fir_number) → faults.ErrDuplicateIdentifier
func (r *Repository) InsertCase(ctx context.Context, c Case) (Case, error) {
	if c.Status == "" {
		c.Status = StatusOpen
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query, args, err := sq.Insert("cases").
		Columns("fir_number", "station_id", "title", "description", "status", "created_by", "created_at").
		Values(c.FIRNumber, c.StationID, c.Title, c.Description, c.Status, c.CreatedBy, c.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return Case{}, fmt.Errorf("build insert: %w", err)
	}

	row, _, err := r.q.QueryOne(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return Case{}, faults.New(faults.KindDuplicateIdentifier, "insert case "+c.FIRNumber, cause(err))
		}
		return Case{}, err
	}

	c.ID, err = row.Int64("id")
	if err != nil {
		return Case{}, err
	}
	return c, nil
}

// GetCase возвращает дело по id
func (r *Repository) GetCase(ctx context.Context, id int64) (Case, bool, error) {
	return r.getCase(ctx, sq.Eq{"id": id})
}

// GetCaseByFIR возвращает дело по номеру FIR
func (r *Repository) GetCaseByFIR(ctx context.Context, fir string) (Case, bool, error) {
	return r.getCase(ctx, sq.Eq{"fir_number": fir})
}

func (r *Repository) getCase(ctx context.Context, where sq.Eq) (Case, bool, error) {
	query, args, err := sq.Select(caseColumns...).From("cases").Where(where).ToSql()
	if err != nil {
		return Case{}, false, fmt.Errorf("build select: %w", err)
	}
	return datastore.QueryOneAs(ctx, r.q, caseFromRow, query, args...)
}

// ListCases возвращает дела участка, новые первыми
func (r *Repository) ListCases(ctx context.Context, stationID int64, limit uint64) ([]Case, error) {
	query, args, err := sq.Select(caseColumns...).
		From("cases").
		Where(sq.Eq{"station_id": stationID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return datastore.ExecuteAs(ctx, r.q, caseFromRow, query, args...)
}

// AddPerson добавляет лицо к делу
func (r *Repository) AddPerson(ctx context.Context, caseID int64, p NewPerson) (Person, error) {
	created := Person{
		CaseID:    caseID,
		FullName:  p.FullName,
		Role:      p.Role,
		Contact:   p.Contact,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	query, args, err := sq.Insert("persons").
		Columns("case_id", "full_name", "role", "contact", "created_at").
		Values(created.CaseID, created.FullName, created.Role, created.Contact, created.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return Person{}, fmt.Errorf("build insert: %w", err)
	}

	row, _, err := r.q.QueryOne(ctx, query, args...)
	if err != nil {
		return Person{}, err
	}

	created.ID, err = row.Int64("id")
	if err != nil {
		return Person{}, err
	}
	return created, nil
}

// Persons возвращает лиц, связанных с делом
func (r *Repository) Persons(ctx context.Context, caseID int64) ([]Person, error) {
	query, args, err := sq.Select(personColumns...).
		From("persons").
		Where(sq.Eq{"case_id": caseID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	return datastore.ExecuteAs(ctx, r.q, personFromRow, query, args...)
}

// isUniqueViolation распознает нарушение уникальности любой поддерживаемой СУБД
func isUniqueViolation(err error) bool {
	return postgres.IsUniqueViolation(err) ||
		sqlite.IsUniqueViolation(err) ||
		mysql.IsUniqueViolation(err) ||
		mssql.IsUniqueViolation(err)
}

// cause снимает категорию фасада, оставляя ошибку драйвера
func cause(err error) error {
	var fe *faults.Error
	if errors.As(err, &fe) && fe.Err != nil {
		return fe.Err
	}
	return err
}
