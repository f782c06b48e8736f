package retry

import (
	"fmt"
	"time"
)

// BackoffStrategy определяет стратегию задержки между повторами
type BackoffStrategy string

const (
	// BackoffConstant - постоянная задержка
	BackoffConstant BackoffStrategy = "constant"
	// BackoffLinear - линейное увеличение задержки
	BackoffLinear BackoffStrategy = "linear"
	// BackoffExponential - экспоненциальное увеличение задержки
	BackoffExponential BackoffStrategy = "exponential"
)

// Config содержит конфигурацию повторов
type Config struct {
	// MaxAttempts - максимальное количество попыток (включая первую), >= 1
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay - задержка перед первым повтором
	InitialDelay time.Duration `yaml:"initial_delay"`

	// MaxDelay - максимальная задержка между попытками
	MaxDelay time.Duration `yaml:"max_delay"`

	// BackoffStrategy - стратегия увеличения задержки
	BackoffStrategy BackoffStrategy `yaml:"backoff"`

	// BackoffMultiplier - множитель для exponential backoff (обычно 2.0)
	BackoffMultiplier float64 `yaml:"multiplier"`

	// Jitter - случайное отклонение задержки (0.0 - 1.0)
	// Разводит во времени одновременных писателей, столкнувшихся на одном номере
	Jitter float64 `yaml:"jitter"`

	// RetryIf решает, повторять ли попытку после ошибки
	// nil = повторять любую ошибку
	RetryIf func(err error) bool `yaml:"-"`

	// OnRetry - вызывается перед каждым повтором
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1, got %d", c.MaxAttempts)
	}

	if c.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be >= 0")
	}

	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	}

	switch c.BackoffStrategy {
	case BackoffConstant, BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("invalid backoff strategy: %s", c.BackoffStrategy)
	}

	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2.0 // Default
	}

	if c.Jitter < 0 || c.Jitter > 1.0 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %f", c.Jitter)
	}

	return nil
}

// DefaultConfig возвращает конфигурацию по умолчанию:
// 3 попытки, постоянная задержка 20ms с небольшим jitter
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		InitialDelay:      20 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffStrategy:   BackoffConstant,
		BackoffMultiplier: 2.0,
		Jitter:            0.5,
	}
}

// Attempts создает конфигурацию по умолчанию с заданным числом попыток
// и предикатом повтора
func Attempts(maxAttempts int, retryIf func(error) bool) Config {
	config := DefaultConfig()
	config.MaxAttempts = maxAttempts
	config.RetryIf = retryIf
	return config
}
