package fir

import (
	"fmt"
	"strconv"
	"strings"
)

// SequenceWidth - минимальная ширина порядкового номера (с ведущими нулями)
const SequenceWidth = 4

// Number - разобранный номер FIR
type Number struct {
	Code     string // Код участка: "KTM"
	Year     int    // Год регистрации
	Sequence int    // Порядковый номер в году, с 1
}

// String форматирует номер: KTM/2026/0001
func (n Number) String() string {
	return fmt.Sprintf("%s/%d/%0*d", n.Code, n.Year, SequenceWidth, n.Sequence)
}

// Parse разбирает строку вида KTM/2026/0001
func Parse(s string) (Number, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Number{}, fmt.Errorf("invalid FIR number %q: expected CODE/YEAR/SEQ", s)
	}

	code := parts[0]
	if code == "" || strings.TrimSpace(code) != code {
		return Number{}, fmt.Errorf("invalid FIR number %q: bad station code", s)
	}

	if len(parts[1]) != 4 {
		return Number{}, fmt.Errorf("invalid FIR number %q: year must have 4 digits", s)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 1 {
		return Number{}, fmt.Errorf("invalid FIR number %q: bad year", s)
	}

	if len(parts[2]) < SequenceWidth {
		return Number{}, fmt.Errorf("invalid FIR number %q: sequence must have at least %d digits", s, SequenceWidth)
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq < 1 {
		return Number{}, fmt.Errorf("invalid FIR number %q: bad sequence", s)
	}

	return Number{Code: code, Year: year, Sequence: seq}, nil
}
