// Package retry повторяет операцию целиком при ошибках, которые вызывающий
// считает повторяемыми (например, конфликт номера FIR при вставке дела).
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// ErrMaxAttempts возвращается (обернутой вместе с последней ошибкой), когда попытки исчерпаны
var ErrMaxAttempts = errors.New("max retry attempts exceeded")

// RetryableFunc - функция, которую можно повторить
type RetryableFunc func(ctx context.Context) error

// Retryer выполняет повторы
type Retryer struct {
	config Config
}

// NewRetryer создает новый Retryer
func NewRetryer(config Config) (*Retryer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	return &Retryer{config: config}, nil
}

// Do выполняет fn, повторяя ее при повторяемых ошибках
// Неповторяемая ошибка возвращается без обертки
func (r *Retryer) Do(ctx context.Context, fn RetryableFunc) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if !r.shouldRetry(err) {
			return err
		}

		if attempt >= r.config.MaxAttempts {
			return fmt.Errorf("%w (%d): %w", ErrMaxAttempts, r.config.MaxAttempts, err)
		}

		if ctx.Err() != nil {
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		delay := r.calculateDelay(attempt)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

// calculateDelay вычисляет задержку после попытки attempt
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.BackoffStrategy {
	case BackoffLinear:
		// delay = initial * attempt
		delay = r.config.InitialDelay * time.Duration(attempt)

	case BackoffExponential:
		// delay = initial * multiplier^(attempt-1)
		multiplier := math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.InitialDelay) * multiplier)

	default:
		delay = r.config.InitialDelay
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter > 0 {
		jitter := time.Duration(float64(delay) * r.config.Jitter * (rand.Float64()*2 - 1))
		delay += jitter
		if delay < 0 {
			delay = r.config.InitialDelay
		}
	}

	return delay
}

func (r *Retryer) shouldRetry(err error) bool {
	if r.config.RetryIf == nil {
		return true
	}
	return r.config.RetryIf(err)
}
