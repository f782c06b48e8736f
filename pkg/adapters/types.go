package adapters

import (
	"fmt"
	"strconv"
)

// Row - строка результата: имя колонки → значение
// Значения []byte конвертируются в string
type Row map[string]any

// String возвращает значение колонки как строку ("" если NULL или нет колонки)
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Int64 возвращает целочисленное значение колонки
// Драйверы возвращают COUNT(*) и ключи по-разному: int64, int32, []byte, string
func (r Row) Int64(col string) (int64, error) {
	switch v := r[col].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case nil:
		return 0, fmt.Errorf("column %q is null or missing", col)
	default:
		return 0, fmt.Errorf("column %q: unexpected type %T", col, v)
	}
}

// Convention - формат позиционных параметров запроса
type Convention int

const (
	// ConventionQuestion - "?" для каждого параметра (MySQL, SQLite)
	ConventionQuestion Convention = iota

	// ConventionDollar - "$1", "$2", ... (PostgreSQL)
	ConventionDollar

	// ConventionAtP - "@p1", "@p2", ... (MS SQL Server)
	ConventionAtP
)

// String - строковое представление формата
func (c Convention) String() string {
	switch c {
	case ConventionQuestion:
		return "question"
	case ConventionDollar:
		return "dollar"
	case ConventionAtP:
		return "at-p"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Prefix возвращает префикс нумерованного параметра ("" для ConventionQuestion)
func (c Convention) Prefix() string {
	switch c {
	case ConventionDollar:
		return "$"
	case ConventionAtP:
		return "@p"
	default:
		return ""
	}
}

// PoolStats - состояние пула соединений
type PoolStats struct {
	MaxConns int // Лимит пула
	InUse    int // Выдано соединений
	Idle     int // Простаивающих соединений
}
