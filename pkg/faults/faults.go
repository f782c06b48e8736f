// Package faults описывает таксономию ошибок слоя доступа к данным.
//
// Каждая ошибка несет Kind, по которому вызывающий код (HTTP API, CLI)
// отличает недоступность хранилища от отклоненного запроса, не разбирая
// текст ошибки драйвера.
package faults

import (
	"errors"
	"fmt"
)

// Kind - категория ошибки
type Kind int

const (
	// KindUnknown - ошибка без категории (не создана этим пакетом)
	KindUnknown Kind = iota

	// KindBackendUnavailable - хранилище недоступно (сеть, соединение)
	// Повторяется один раз через fallback, иначе фатальна
	KindBackendUnavailable

	// KindQueryRejected - запрос отклонен (синтаксис, constraint, права)
	// Никогда не повторяется
	KindQueryRejected

	// KindInvalidScope - выделение номера для несуществующего участка
	KindInvalidScope

	// KindDuplicateIdentifier - конфликт уникальности номера при вставке
	// Фатальна для текущей попытки, вызывающий может повторить попытку целиком
	KindDuplicateIdentifier

	// KindForbidden - отказ проверки прав, до обращения к хранилищу
	KindForbidden

	// KindInvalidInput - некорректные входные данные вызывающего
	KindInvalidInput
)

// String - строковое представление категории
func (k Kind) String() string {
	switch k {
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindQueryRejected:
		return "query_rejected"
	case KindInvalidScope:
		return "invalid_scope"
	case KindDuplicateIdentifier:
		return "duplicate_identifier"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Sentinel-ошибки для errors.Is: совпадают с любой *Error той же категории
var (
	ErrBackendUnavailable  = &Error{Kind: KindBackendUnavailable}
	ErrQueryRejected       = &Error{Kind: KindQueryRejected}
	ErrInvalidScope        = &Error{Kind: KindInvalidScope}
	ErrDuplicateIdentifier = &Error{Kind: KindDuplicateIdentifier}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
)

// Error - ошибка с категорией
type Error struct {
	Kind Kind   // Категория
	Op   string // Операция, на которой произошла ошибка
	Err  error  // Исходная ошибка (может быть nil)
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

// Unwrap возвращает исходную ошибку
func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает по категории, чтобы работал errors.Is(err, ErrQueryRejected)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// New создает ошибку заданной категории
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf создает ошибку заданной категории с форматированным сообщением
func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf возвращает категорию первой *Error в цепочке или KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is проверяет, относится ли ошибка к категории kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
