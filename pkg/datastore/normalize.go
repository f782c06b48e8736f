package datastore

import (
	"strconv"
	"strings"

	"github.com/ruslano69/firvault/pkg/adapters"
)

// Normalize переписывает "?" в нумерованный формат conv, слева направо:
//
//	SELECT * FROM cases WHERE id = ? AND status = ?
//	→ SELECT * FROM cases WHERE id = $1 AND status = $2
//
// "?" внутри строковых литералов, идентификаторов в кавычках и комментариев
// не трогается. Шаблон без "?" (в том числе уже нумерованный) возвращается как есть.
// Для ConventionQuestion шаблон не меняется.
//
// Операторы jsonb PostgreSQL (?, ?|, ?&) в запросах через Normalize не поддерживаются.
func Normalize(template string, conv adapters.Convention) string {
	prefix := conv.Prefix()
	if prefix == "" {
		return template
	}

	var b strings.Builder
	last, n := 0, 0
	eachCode(template, func(i int) {
		if template[i] != '?' {
			return
		}
		if n == 0 {
			b.Grow(len(template) + 8)
		}
		n++
		b.WriteString(template[last:i])
		b.WriteString(prefix)
		b.WriteString(strconv.Itoa(n))
		last = i + 1
	})

	if n == 0 {
		return template
	}
	b.WriteString(template[last:])
	return b.String()
}

// CountPlaceholders возвращает количество параметров, которое ожидает шаблон:
// число "?" либо наибольший индекс $N / @pN, смотря что больше
func CountPlaceholders(template string) int {
	questions, highest := 0, 0
	eachCode(template, func(i int) {
		switch {
		case template[i] == '?':
			questions++
		case i > 0 && isIdentByte(template[i-1]):
			// a$1, email@p1 - часть идентификатора
		default:
			for _, prefix := range []string{"$", "@p"} {
				if idx := indexAfter(template, i, prefix); idx > highest {
					highest = idx
				}
			}
		}
	})
	return max(questions, highest)
}

// indexAfter разбирает prefix + цифры начиная с позиции i (0 если не совпало)
func indexAfter(s string, i int, prefix string) int {
	if !strings.HasPrefix(s[i:], prefix) {
		return 0
	}
	j := i + len(prefix)
	k := j
	for k < len(s) && s[k] >= '0' && s[k] <= '9' {
		k++
	}
	if k == j {
		return 0
	}
	n, err := strconv.Atoi(s[j:k])
	if err != nil {
		return 0
	}
	return n
}

// eachCode вызывает fn для каждого байта шаблона вне литералов ('...'),
// идентификаторов в кавычках ("...", `...`) и комментариев (-- и /* */)
func eachCode(s string, fn func(i int)) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			// '' внутри литерала закрывает и сразу открывает литерал снова
			j := strings.IndexByte(s[i+1:], c)
			if j < 0 {
				return
			}
			i += j + 1
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				return
			}
			i += j
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			j := strings.Index(s[i+2:], "*/")
			if j < 0 {
				return
			}
			i += j + 3
		default:
			fn(i)
		}
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
