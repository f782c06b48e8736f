package base

import (
	"regexp"
	"strings"
)

// returningRe - завершающее "RETURNING <колонка>" оператора INSERT
var returningRe = regexp.MustCompile(`(?is)^\s*(INSERT\s.*?)\s+RETURNING\s+([A-Za-z_][A-Za-z0-9_]*)\s*;?\s*$`)

// limitRe - завершающее "LIMIT <n>" (squirrel подставляет число литералом)
var limitRe = regexp.MustCompile(`(?is)\s+LIMIT\s+(\d+)\s*;?\s*$`)

// SplitReturning разбирает "INSERT ... RETURNING col" на оператор без
// RETURNING и имя колонки. ok == false для любого другого запроса
func SplitReturning(query string) (stmt, col string, ok bool) {
	m := returningRe.FindStringSubmatch(query)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// OutputInserted переписывает "INSERT ... VALUES ... RETURNING col" в форму
// MS SQL Server: "INSERT ... OUTPUT INSERTED.col VALUES ..."
func OutputInserted(query string) string {
	stmt, col, ok := SplitReturning(query)
	if !ok {
		return query
	}
	i := strings.Index(strings.ToUpper(stmt), " VALUES")
	if i < 0 {
		return query
	}
	return stmt[:i] + " OUTPUT INSERTED." + col + stmt[i:]
}

// LimitToFetch переписывает завершающий "LIMIT n" в
// "OFFSET 0 ROWS FETCH NEXT n ROWS ONLY"; без ORDER BY добавляется
// ORDER BY (SELECT NULL), которого требует OFFSET
func LimitToFetch(query string) string {
	m := limitRe.FindStringSubmatchIndex(query)
	if m == nil {
		return query
	}
	head := query[:m[0]]
	n := query[m[2]:m[3]]

	if !strings.Contains(strings.ToUpper(head), "ORDER BY") {
		head += " ORDER BY (SELECT NULL)"
	}
	return head + " OFFSET 0 ROWS FETCH NEXT " + n + " ROWS ONLY"
}
