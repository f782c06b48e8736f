package datastore

import (
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"github.com/ruslano69/firvault/pkg/faults"
)

// Class - результат классификации ошибки
type Class int

const (
	// Fatal - запрос отклонен доступной СУБД, повтор на другом хранилище запрещен
	Fatal Class = iota

	// Retryable - хранилище недоступно, допустим один повтор на fallback
	Retryable
)

// String - строковое представление класса
func (c Class) String() string {
	if c == Retryable {
		return "retryable"
	}
	return "fatal"
}

// networkErrnos - коды ОС, означающие недоступность сервера
var networkErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ETIMEDOUT,
	syscall.EHOSTUNREACH,
	syscall.ECONNRESET,
	syscall.EPIPE,
	syscall.ENETUNREACH,
}

// Classifier отличает недоступность хранилища от отклоненного запроса
//
// Правила по порядку:
//  1. faults.ErrBackendUnavailable, сетевые ошибки ОС, DNS, сетевой таймаут,
//     driver.ErrBadConn → Retryable
//  2. ошибки соединения конкретной СУБД (детекторы адаптеров) → Retryable
//  3. все остальное → Fatal
//
// Доступная, но неправильно настроенная СУБД (неверный пароль, нет таблицы)
// дает Fatal: такой primary не должен маскироваться переключением на fallback
type Classifier struct {
	detectors []func(error) bool
}

// NewClassifier создает классификатор с детекторами ошибок соединения СУБД
func NewClassifier(detectors ...func(error) bool) *Classifier {
	return &Classifier{detectors: detectors}
}

// Classify возвращает класс ошибки (nil → Fatal)
func (c *Classifier) Classify(err error) Class {
	if err == nil {
		return Fatal
	}

	if errors.Is(err, faults.ErrBackendUnavailable) || isNetworkError(err) {
		return Retryable
	}

	for _, detect := range c.detectors {
		if detect != nil && detect(err) {
			return Retryable
		}
	}

	return Fatal
}

func isNetworkError(err error) bool {
	for _, errno := range networkErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
