package datastore

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ruslano69/firvault/pkg/adapters"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		template string
		conv     adapters.Convention
		want     string
	}{
		{
			name:     "dollar",
			template: "SELECT * FROM cases WHERE station_id = ? AND status = ?",
			conv:     adapters.ConventionDollar,
			want:     "SELECT * FROM cases WHERE station_id = $1 AND status = $2",
		},
		{
			name:     "at-p",
			template: "INSERT INTO t (a, b, c) VALUES (?, ?, ?)",
			conv:     adapters.ConventionAtP,
			want:     "INSERT INTO t (a, b, c) VALUES (@p1, @p2, @p3)",
		},
		{
			name:     "question unchanged",
			template: "SELECT ? , ?",
			conv:     adapters.ConventionQuestion,
			want:     "SELECT ? , ?",
		},
		{
			name:     "no placeholders",
			template: "SELECT 1",
			conv:     adapters.ConventionDollar,
			want:     "SELECT 1",
		},
		{
			name:     "already numbered",
			template: "SELECT * FROM cases WHERE id = $1",
			conv:     adapters.ConventionDollar,
			want:     "SELECT * FROM cases WHERE id = $1",
		},
		{
			name:     "string literal kept",
			template: "SELECT * FROM t WHERE a = 'why?' AND b = ?",
			conv:     adapters.ConventionDollar,
			want:     "SELECT * FROM t WHERE a = 'why?' AND b = $1",
		},
		{
			name:     "escaped quote in literal",
			template: "SELECT 'it''s ?' , ?",
			conv:     adapters.ConventionDollar,
			want:     "SELECT 'it''s ?' , $1",
		},
		{
			name:     "quoted identifier kept",
			template: `SELECT "odd?col" FROM t WHERE id = ?`,
			conv:     adapters.ConventionDollar,
			want:     `SELECT "odd?col" FROM t WHERE id = $1`,
		},
		{
			name:     "comments kept",
			template: "SELECT ? -- what?\nFROM t /* really? */ WHERE id = ?",
			conv:     adapters.ConventionDollar,
			want:     "SELECT $1 -- what?\nFROM t /* really? */ WHERE id = $2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.template, tt.conv))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	q := "UPDATE cases SET status = ? WHERE id = ?"
	once := Normalize(q, adapters.ConventionDollar)
	assert.Equal(t, once, Normalize(once, adapters.ConventionDollar))
}

// N параметров → ровно N нумерованных плейсхолдеров в исходном порядке
func TestNormalizeKeepsOrder(t *testing.T) {
	for n := 0; n <= 25; n++ {
		q := "SELECT " + strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
		got := Normalize(q, adapters.ConventionDollar)

		assert.Equal(t, n, CountPlaceholders(got), "n=%d", n)
		assert.NotContains(t, got, "?")

		pos := -1
		for i := 1; i <= n; i++ {
			p := strings.Index(got, fmt.Sprintf("$%d", i))
			assert.Greater(t, p, pos, "n=%d i=%d", n, i)
			pos = p
		}
	}
}

func TestCountPlaceholders(t *testing.T) {
	assert.Equal(t, 0, CountPlaceholders("SELECT 1"))
	assert.Equal(t, 2, CountPlaceholders("SELECT ?, ?"))
	assert.Equal(t, 1, CountPlaceholders("SELECT 'a?' , ?"))
	assert.Equal(t, 3, CountPlaceholders("SELECT $1, $3, $2"))
	assert.Equal(t, 2, CountPlaceholders("SELECT @p1, @p2"))
	assert.Equal(t, 1, CountPlaceholders("SELECT $1, $1"))
	assert.Equal(t, 0, CountPlaceholders("SELECT $$body$$"))
	assert.Equal(t, 0, CountPlaceholders("SELECT a$1 FROM t"))
}
