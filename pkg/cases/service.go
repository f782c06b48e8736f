package cases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/pkg/events"
	"github.com/ruslano69/firvault/pkg/faults"
	"github.com/ruslano69/firvault/pkg/fir"
	"github.com/ruslano69/firvault/pkg/retry"
)

// DefaultCreateAttempts - попыток выделения номера и вставки на одно создание дела
const DefaultCreateAttempts = 3

// ErrNotFound - дело не найдено
var ErrNotFound = errors.New("case not found")

// Service - сценарии работы с делами
type Service struct {
	repo    *Repository
	alloc   *fir.Allocator
	retryer *retry.Retryer
	pub     events.Publisher
	log     zerolog.Logger

	now func() time.Time
}

// NewService создает сервис
// attempts - сколько раз повторять выделение номера и вставку при конфликте номера
func NewService(repo *Repository, alloc *fir.Allocator, pub events.Publisher, logger zerolog.Logger, attempts int) (*Service, error) {
	if attempts <= 0 {
		attempts = DefaultCreateAttempts
	}
	if pub == nil {
		pub = events.Nop{}
	}

	cfg := retry.Attempts(attempts, func(err error) bool {
		return faults.Is(err, faults.KindDuplicateIdentifier)
	})
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("fir number conflict, retrying")
	}

	retryer, err := retry.NewRetryer(cfg)
	if err != nil {
		return nil, err
	}

	return &Service{
		repo:    repo,
		alloc:   alloc,
		retryer: retryer,
		pub:     pub,
		log:     logger,
		now:     time.Now,
	}, nil
}

// Create регистрирует дело: выделяет номер FIR и вставляет запись
// Конфликт номера с параллельным писателем повторяет попытку целиком
func (s *Service) Create(ctx context.Context, in NewCase) (Case, error) {
	if err := in.Validate(); err != nil {
		return Case{}, err
	}

	var created Case
	err := s.retryer.Do(ctx, func(ctx context.Context) error {
		now := s.now().UTC().Truncate(time.Microsecond)

		number, err := s.alloc.Allocate(ctx, in.StationID, now.Year())
		if err != nil {
			return err
		}

		created, err = s.repo.InsertCase(ctx, Case{
			FIRNumber:   number,
			StationID:   in.StationID,
			Title:       in.Title,
			Description: in.Description,
			Status:      StatusOpen,
			CreatedBy:   in.CreatedBy,
			CreatedAt:   now,
		})
		return err
	})
	if err != nil {
		return Case{}, fmt.Errorf("create case: %w", err)
	}

	s.log.Info().
		Str("fir", created.FIRNumber).
		Int64("case_id", created.ID).
		Int64("station", created.StationID).
		Msg("case created")

	s.publish(ctx, events.New(events.TypeCaseCreated, created.FIRNumber, created))
	return created, nil
}

// Get возвращает дело по id
func (s *Service) Get(ctx context.Context, id int64) (Case, error) {
	c, ok, err := s.repo.GetCase(ctx, id)
	if err != nil {
		return Case{}, err
	}
	if !ok {
		return Case{}, ErrNotFound
	}
	return c, nil
}

// GetByFIR возвращает дело по номеру FIR
func (s *Service) GetByFIR(ctx context.Context, number string) (Case, error) {
	if _, err := fir.Parse(number); err != nil {
		return Case{}, faults.New(faults.KindInvalidInput, "get case", err)
	}

	c, ok, err := s.repo.GetCaseByFIR(ctx, number)
	if err != nil {
		return Case{}, err
	}
	if !ok {
		return Case{}, ErrNotFound
	}
	return c, nil
}

// AddPerson добавляет лицо к существующему делу
func (s *Service) AddPerson(ctx context.Context, caseID int64, in NewPerson) (Person, error) {
	if err := in.Validate(); err != nil {
		return Person{}, err
	}

	c, err := s.Get(ctx, caseID)
	if err != nil {
		return Person{}, err
	}

	p, err := s.repo.AddPerson(ctx, caseID, in)
	if err != nil {
		return Person{}, fmt.Errorf("add person: %w", err)
	}

	s.publish(ctx, events.New(events.TypePersonAdded, c.FIRNumber, p))
	return p, nil
}

// Persons возвращает лиц по делу
func (s *Service) Persons(ctx context.Context, caseID int64) ([]Person, error) {
	if _, err := s.Get(ctx, caseID); err != nil {
		return nil, err
	}
	return s.repo.Persons(ctx, caseID)
}

// publish - best effort: ошибка брокера только логируется
func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.pub.Publish(ctx, ev); err != nil {
		s.log.Warn().
			Err(err).
			Str("event", ev.Type).
			Str("fir", ev.Key).
			Str("publisher", s.pub.GetType()).
			Msg("failed to publish event")
	}
}

// MaxListLimit - верхняя граница размера страницы List
const MaxListLimit = 500

// List возвращает дела участка, новые первыми
func (s *Service) List(ctx context.Context, stationID int64, limit int) ([]Case, error) {
	if stationID <= 0 {
		return nil, faults.Newf(faults.KindInvalidInput, "list cases", "station_id is required")
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.ListCases(ctx, stationID, uint64(limit))
}

// CreateStation регистрирует участок
// Код входит в номер FIR, поэтому допускаются только A-Z, 0-9 и '-'
func (s *Service) CreateStation(ctx context.Context, code, name string) (Station, error) {
	if err := validateStationCode(code); err != nil {
		return Station{}, err
	}
	if strings.TrimSpace(name) == "" {
		return Station{}, faults.Newf(faults.KindInvalidInput, "create station", "name is required")
	}

	st, err := s.repo.CreateStation(ctx, code, name)
	if err != nil {
		return Station{}, err
	}
	s.log.Info().Str("code", st.Code).Int64("station", st.ID).Msg("station created")
	return st, nil
}

// Stations возвращает все участки
func (s *Service) Stations(ctx context.Context) ([]Station, error) {
	return s.repo.Stations(ctx)
}

func validateStationCode(code string) error {
	if code == "" || len(code) > 16 {
		return faults.Newf(faults.KindInvalidInput, "create station", "station code must be 1-16 characters")
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '-' {
			return faults.Newf(faults.KindInvalidInput, "create station", "station code %q: only A-Z, 0-9 and '-' allowed", code)
		}
	}
	return nil
}
