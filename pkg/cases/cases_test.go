package cases

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/datastore"
	"github.com/ruslano69/firvault/pkg/events"
	"github.com/ruslano69/firvault/pkg/faults"
	"github.com/ruslano69/firvault/pkg/fir"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error    { return nil }
func (p *recordingPublisher) GetType() string { return "recording" }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	db      *datastore.DB
	repo    *Repository
	alloc   *fir.Allocator
	pub     *recordingPublisher
	svc     *Service
	station Station
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := datastore.Open(ctx, datastore.Config{
		Fallback: adapters.Config{
			Type:     "sqlite",
			DSN:      filepath.Join(t.TempDir(), "cases.db"),
			MaxConns: 4,
		},
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db)
	require.NoError(t, repo.ApplySchema(ctx, DialectSQLite))

	station, err := repo.CreateStation(ctx, "KTM", "Kathmandu Metropolitan")
	require.NoError(t, err)

	alloc := fir.NewAllocator(db, fir.NewDBStations(db), zerolog.Nop())
	pub := &recordingPublisher{}

	svc, err := NewService(repo, alloc, pub, zerolog.Nop(), 10)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	return &fixture{db: db, repo: repo, alloc: alloc, pub: pub, svc: svc, station: station}
}

func TestApplySchemaIdempotent(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.repo.ApplySchema(context.Background(), DialectSQLite))

	_, err := Schema("oracle")
	assert.Error(t, err)
}

func TestSchemaPerDialect(t *testing.T) {
	markers := map[string]string{
		DialectPostgres: "BIGSERIAL",
		DialectSQLite:   "AUTOINCREMENT",
		DialectMySQL:    "AUTO_INCREMENT",
		DialectMSSQL:    "IDENTITY(1,1)",
	}
	for dialect, marker := range markers {
		stmts, err := Schema(dialect)
		require.NoError(t, err, dialect)

		all := strings.Join(stmts, "\n")
		assert.Contains(t, all, marker, dialect)
		for _, table := range []string{"stations", "cases", "persons"} {
			assert.Contains(t, all, table, dialect)
		}
		assert.Contains(t, all, "idx_cases_station_created", dialect)
		for other, m := range markers {
			if other != dialect {
				assert.NotContains(t, all, m, "%s DDL содержит синтаксис %s", dialect, other)
			}
		}
	}
}

// Схема применяется к каждому пулу в его диалекте; недоступный primary
// не мешает fallback получить таблицы
func TestApplySchemaAll(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	db, err := datastore.Open(ctx, datastore.Config{
		Primary:  &adapters.Config{Type: "sqlite", DSN: filepath.Join(dir, "primary.db")},
		Fallback: adapters.Config{Type: "sqlite", DSN: filepath.Join(dir, "fallback.db")},
	}, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	results := ApplySchemaAll(ctx, db.Backends())
	require.Len(t, results, 2)
	assert.Equal(t, "primary", results[0].Role)
	assert.Equal(t, "fallback", results[1].Role)
	for _, res := range results {
		assert.NoError(t, res.Err, res.Role)
		assert.Equal(t, DialectSQLite, res.Dialect)
	}

	for _, b := range db.Backends() {
		rows, err := b.Execute(ctx, "SELECT COUNT(*) AS n FROM cases")
		require.NoError(t, err, b.Role())
		assert.EqualValues(t, 0, rows[0]["n"])
	}

	broken, err := datastore.Open(ctx, datastore.Config{
		Primary:  &adapters.Config{Type: "sqlite", DSN: "file:" + filepath.Join(dir, "missing", "dir", "p.db")},
		Fallback: adapters.Config{Type: "sqlite", DSN: filepath.Join(dir, "fallback2.db")},
	}, zerolog.Nop())
	require.NoError(t, err)
	defer broken.Close()

	results = ApplySchemaAll(ctx, broken.Backends())
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, faults.ErrBackendUnavailable)
	assert.NoError(t, results[1].Err)
}

func TestCreateStationDuplicate(t *testing.T) {
	f := newFixture(t)

	_, err := f.repo.CreateStation(context.Background(), "KTM", "again")
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrInvalidInput)

	stations, err := f.repo.Stations(context.Background())
	require.NoError(t, err)
	assert.Len(t, stations, 1)
}

func TestInsertCaseDuplicateIdentifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := Case{FIRNumber: "KTM/2026/0001", StationID: f.station.ID, Title: "theft"}
	created, err := f.repo.InsertCase(ctx, c)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = f.repo.InsertCase(ctx, c)
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrDuplicateIdentifier)
	assert.Equal(t, faults.KindDuplicateIdentifier, faults.KindOf(err))
	assert.NotErrorIs(t, err, faults.ErrQueryRejected)
}

// Две вставки с одним номером одновременно: ровно одна успешна
func TestConcurrentInsertSameCandidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const writers = 2
	start := make(chan struct{})
	errs := make([]error, writers)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.repo.InsertCase(ctx, Case{
				FIRNumber: "KTM/2026/0001",
				StationID: f.station.ID,
				Title:     "race",
			})
		}(i)
	}
	close(start)
	wg.Wait()

	ok, dup := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, faults.ErrDuplicateIdentifier):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
}

// Два аллокатора посчитали одно и то же до вставки: окно гонки
func TestAllocationRaceWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.alloc.Allocate(ctx, f.station.ID, 2026)
	require.NoError(t, err)
	b, err := f.alloc.Allocate(ctx, f.station.ID, 2026)
	require.NoError(t, err)
	require.Equal(t, a, b)

	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.repo.InsertCase(ctx, Case{FIRNumber: a, StationID: f.station.ID, Title: "first", CreatedAt: at})
	require.NoError(t, err)
	_, err = f.repo.InsertCase(ctx, Case{FIRNumber: b, StationID: f.station.ID, Title: "second", CreatedAt: at})
	assert.ErrorIs(t, err, faults.ErrDuplicateIdentifier)

	// Следующая попытка видит вставленное дело
	next, err := f.alloc.Allocate(ctx, f.station.ID, 2026)
	require.NoError(t, err)
	assert.Equal(t, "KTM/2026/0002", next)
}

func TestServiceCreateSequential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, NewCase{StationID: f.station.ID, Title: "burglary", CreatedBy: "officer-1"})
	require.NoError(t, err)
	assert.Equal(t, "KTM/2026/0001", first.FIRNumber)
	assert.Equal(t, StatusOpen, first.Status)

	second, err := f.svc.Create(ctx, NewCase{StationID: f.station.ID, Title: "fraud"})
	require.NoError(t, err)
	assert.Equal(t, "KTM/2026/0002", second.FIRNumber)

	got, err := f.svc.GetByFIR(ctx, "KTM/2026/0002")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, "fraud", got.Title)
	assert.True(t, second.CreatedAt.Equal(got.CreatedAt), "%v != %v", second.CreatedAt, got.CreatedAt)

	assert.Equal(t, []string{events.TypeCaseCreated, events.TypeCaseCreated}, f.pub.types())
}

// Параллельные создания сталкиваются на номере и повторяют попытку:
// все дела создаются с разными номерами
func TestServiceCreateConcurrentRetries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const writers = 4
	results := make([]Case, writers)
	errs := make([]error, writers)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.svc.Create(ctx, NewCase{StationID: f.station.ID, Title: "concurrent"})
		}(i)
	}
	close(start)
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[results[i].FIRNumber], "duplicate %s", results[i].FIRNumber)
		seen[results[i].FIRNumber] = true
	}
	for _, want := range []string{"KTM/2026/0001", "KTM/2026/0002", "KTM/2026/0003", "KTM/2026/0004"} {
		assert.True(t, seen[want], want)
	}
}

func TestServiceCreateInvalidStation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), NewCase{StationID: 999, Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, faults.ErrInvalidScope)
	assert.Empty(t, f.pub.types())

	_, err = f.svc.Create(context.Background(), NewCase{StationID: f.station.ID})
	assert.ErrorIs(t, err, faults.ErrInvalidInput)
}

func TestServicePublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	c, err := f.svc.Create(context.Background(), NewCase{StationID: f.station.ID, Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "KTM/2026/0001", c.FIRNumber)
}

func TestServicePersons(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Create(ctx, NewCase{StationID: f.station.ID, Title: "assault"})
	require.NoError(t, err)

	p, err := f.svc.AddPerson(ctx, c.ID, NewPerson{FullName: "Ram Bahadur", Role: PersonComplainant, Contact: "98XXXXXXXX"})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)

	_, err = f.svc.AddPerson(ctx, c.ID, NewPerson{FullName: "Unknown", Role: PersonAccused})
	require.NoError(t, err)

	persons, err := f.svc.Persons(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, persons, 2)
	assert.Equal(t, "Ram Bahadur", persons[0].FullName)
	assert.Equal(t, PersonAccused, persons[1].Role)

	_, err = f.svc.AddPerson(ctx, c.ID, NewPerson{FullName: "X", Role: "judge"})
	assert.ErrorIs(t, err, faults.ErrInvalidInput)

	_, err = f.svc.AddPerson(ctx, 12345, NewPerson{FullName: "X", Role: PersonWitness})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Contains(t, f.pub.types(), events.TypePersonAdded)
}

func TestServiceGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.GetByFIR(ctx, "not-a-fir")
	assert.ErrorIs(t, err, faults.ErrInvalidInput)

	_, err = f.svc.GetByFIR(ctx, "KTM/2026/0099")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Create(ctx, NewCase{StationID: f.station.ID, Title: "case"})
		require.NoError(t, err)
	}

	list, err := f.repo.ListCases(ctx, f.station.ID, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "KTM/2026/0003", list[0].FIRNumber)
}

func TestServiceStations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.CreateStation(ctx, "LTP-2", "Lalitpur")
	require.NoError(t, err)
	assert.Equal(t, "LTP-2", st.Code)

	for _, code := range []string{"", "ktm", "K/T", "A B", "ABCDEFGHIJKLMNOPQ"} {
		_, err := f.svc.CreateStation(ctx, code, "x")
		assert.ErrorIs(t, err, faults.ErrInvalidInput, "code %q", code)
	}
	_, err = f.svc.CreateStation(ctx, "BKT", " ")
	assert.ErrorIs(t, err, faults.ErrInvalidInput)

	stations, err := f.svc.Stations(ctx)
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "KTM", stations[0].Code)
	assert.Equal(t, "LTP-2", stations[1].Code)
}

func TestServiceList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.List(ctx, 0, 10)
	assert.ErrorIs(t, err, faults.ErrInvalidInput)

	list, err := f.svc.List(ctx, f.station.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}
