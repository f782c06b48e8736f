// Package security - проверки процесса и ad-hoc SQL отчетов.
package security

import (
	"strings"

	"github.com/ruslano69/firvault/pkg/faults"
)

// forbidden - ключевые слова, недопустимые в запросе отчета
var forbidden = map[string]bool{
	// DML
	"INSERT": true, "UPDATE": true, "DELETE": true, "TRUNCATE": true, "MERGE": true, "UPSERT": true,
	// DDL
	"DROP": true, "CREATE": true, "ALTER": true, "RENAME": true,
	// DCL
	"GRANT": true, "REVOKE": true,
	// Процедуры
	"EXECUTE": true, "EXEC": true, "CALL": true,
	// SQLite
	"PRAGMA": true, "ATTACH": true, "DETACH": true, "VACUUM": true,
	// Транзакции и блокировки
	"BEGIN": true, "COMMIT": true, "ROLLBACK": true, "LOCK": true,
	"INTO": true, // SELECT ... INTO создает таблицу, REPLACE INTO вставляет
	// Функции с побочными эффектами
	"SET_CONFIG": true, "SETVAL": true, "NEXTVAL": true,
	"LOAD_EXTENSION": true, "LOAD_FILE": true, "OPENROWSET": true, "OPENQUERY": true,
}

// forbiddenPrefixes - семейства служебных функций и каталогов
// pg_* (pg_read_file, pg_terminate_backend), lo_* (большие объекты,
// lo_export пишет файл на сервере), dblink*, xp_* (xp_cmdshell)
var forbiddenPrefixes = []string{"PG_", "LO_", "DBLINK", "XP_"}

// SQLValidator пропускает только читающие запросы отчетов.
//
// Запрос должен начинаться с SELECT или WITH, не содержать изменяющих
// ключевых слов и служебных функций, комментариев и второго оператора.
// Слова внутри строковых литералов '...' не проверяются: WHERE status = 'DELETE'
// допустим. Идентификаторы в кавычках "..." и `...` проверяются как слова.
// Валидатор отсекает очевидное; запрос отчета все равно выполняется
// в режиме только чтения.
type SQLValidator struct{}

// NewSQLValidator создает валидатор
func NewSQLValidator() *SQLValidator {
	return &SQLValidator{}
}

// Validate возвращает faults.ErrInvalidInput для недопустимого запроса
func (v *SQLValidator) Validate(sql string) error {
	const op = "validate report query"

	words, err := scan(sql)
	if err != nil {
		return faults.New(faults.KindInvalidInput, op, err)
	}
	if len(words) == 0 {
		return faults.Newf(faults.KindInvalidInput, op, "empty query")
	}
	if words[0] != "SELECT" && words[0] != "WITH" {
		return faults.Newf(faults.KindInvalidInput, op, "only SELECT and WITH queries allowed, got %s", words[0])
	}
	for _, w := range words {
		if isForbidden(w) {
			return faults.Newf(faults.KindInvalidInput, op, "forbidden keyword %s", w)
		}
	}
	return nil
}

func isForbidden(word string) bool {
	if forbidden[word] {
		return true
	}
	for _, p := range forbiddenPrefixes {
		if strings.HasPrefix(word, p) {
			return true
		}
	}
	return false
}

type scanError string

func (e scanError) Error() string { return string(e) }

// scan возвращает слова запроса в верхнем регистре, пропуская строковые литералы
// Комментарии и ';' перед концом запроса - ошибка
func scan(sql string) ([]string, error) {
	var words []string
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sql), ";"))

	for i := 0; i < len(trimmed); {
		c := trimmed[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			end := strings.IndexByte(trimmed[i+1:], c)
			if end < 0 {
				return nil, scanError("unterminated literal")
			}
			if c != '\'' {
				// "pg_read_file"(...) - тот же вызов, что и без кавычек
				words = append(words, splitWords(trimmed[i+1:i+1+end])...)
			}
			i += end + 2
		case c == '-' && i+1 < len(trimmed) && trimmed[i+1] == '-',
			c == '/' && i+1 < len(trimmed) && trimmed[i+1] == '*':
			return nil, scanError("comments not allowed")
		case c == ';':
			return nil, scanError("multiple statements not allowed")
		case isWordByte(c):
			start := i
			for i < len(trimmed) && isWordByte(trimmed[i]) {
				i++
			}
			words = append(words, strings.ToUpper(trimmed[start:i]))
		default:
			i++
		}
	}
	return words, nil
}

func splitWords(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r > 0x7f || !isWordByte(byte(r))
	})
	for i, f := range fields {
		fields[i] = strings.ToUpper(f)
	}
	return fields
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
