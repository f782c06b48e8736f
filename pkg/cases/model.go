package cases

import (
	"fmt"
	"strings"
	"time"

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/faults"
)

// Статусы дела
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Роли лица в деле
const (
	PersonComplainant = "complainant"
	PersonAccused     = "accused"
	PersonWitness     = "witness"
)

// Case - дело (FIR)
type Case struct {
	ID          int64     `json:"id"`
	FIRNumber   string    `json:"fir_number"`
	StationID   int64     `json:"station_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCase - данные для создания дела
type NewCase struct {
	StationID   int64  `json:"station_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
}

// Validate проверяет входные данные
func (n NewCase) Validate() error {
	if n.StationID <= 0 {
		return faults.Newf(faults.KindInvalidInput, "create case", "station_id is required")
	}
	if strings.TrimSpace(n.Title) == "" {
		return faults.Newf(faults.KindInvalidInput, "create case", "title is required")
	}
	return nil
}

// Person - лицо, связанное с делом
type Person struct {
	ID        int64     `json:"id"`
	CaseID    int64     `json:"case_id"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	Contact   string    `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
}

// NewPerson - данные для добавления лица
type NewPerson struct {
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Contact  string `json:"contact"`
}

// Validate проверяет входные данные
func (n NewPerson) Validate() error {
	if strings.TrimSpace(n.FullName) == "" {
		return faults.Newf(faults.KindInvalidInput, "add person", "full_name is required")
	}
	switch n.Role {
	case PersonComplainant, PersonAccused, PersonWitness:
		return nil
	default:
		return faults.Newf(faults.KindInvalidInput, "add person", "unknown person role %q", n.Role)
	}
}

// timeLayouts - форматы, в которых драйверы возвращают TIMESTAMP строкой
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05",
}

func rowTime(row adapters.Row, col string) (time.Time, error) {
	switch v := row[col].(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("column %q: unrecognized time %q", col, v)
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("column %q: unexpected type %T", col, v)
	}
}

func caseFromRow(row adapters.Row) (Case, error) {
	id, err := row.Int64("id")
	if err != nil {
		return Case{}, err
	}
	stationID, err := row.Int64("station_id")
	if err != nil {
		return Case{}, err
	}
	createdAt, err := rowTime(row, "created_at")
	if err != nil {
		return Case{}, err
	}

	return Case{
		ID:          id,
		FIRNumber:   row.String("fir_number"),
		StationID:   stationID,
		Title:       row.String("title"),
		Description: row.String("description"),
		Status:      row.String("status"),
		CreatedBy:   row.String("created_by"),
		CreatedAt:   createdAt,
	}, nil
}

func personFromRow(row adapters.Row) (Person, error) {
	id, err := row.Int64("id")
	if err != nil {
		return Person{}, err
	}
	caseID, err := row.Int64("case_id")
	if err != nil {
		return Person{}, err
	}
	createdAt, err := rowTime(row, "created_at")
	if err != nil {
		return Person{}, err
	}

	return Person{
		ID:        id,
		CaseID:    caseID,
		FullName:  row.String("full_name"),
		Role:      row.String("role"),
		Contact:   row.String("contact"),
		CreatedAt: createdAt,
	}, nil
}
