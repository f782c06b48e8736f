package adapters

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// AdapterConstructor - функция-конструктор адаптера
// Открывает пул, но не устанавливает соединений (ленивое подключение)
type AdapterConstructor func(ctx context.Context, cfg Config) (Adapter, error)

// Factory - фабрика для создания адаптеров
// Управляет регистрацией и созданием адаптеров различных типов
type Factory struct {
	registry map[string]AdapterConstructor
	mu       sync.RWMutex
}

// NewFactory создает новую фабрику адаптеров
func NewFactory() *Factory {
	return &Factory{
		registry: make(map[string]AdapterConstructor),
	}
}

// Register регистрирует конструктор адаптера для определенного типа БД
//
// Пример:
//
//	factory.Register("postgres", postgres.Open)
func (f *Factory) Register(dbType string, constructor AdapterConstructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registry[dbType] = constructor
}

// IsRegistered проверяет, зарегистрирован ли адаптер для данного типа БД
func (f *Factory) IsRegistered(dbType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.registry[dbType]
	return ok
}

// GetRegisteredTypes возвращает отсортированный список зарегистрированных типов БД
func (f *Factory) GetRegisteredTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.registry))
	for dbType := range f.registry {
		types = append(types, dbType)
	}
	sort.Strings(types)
	return types
}

// Open создает адаптер по конфигурации
// Соединения с БД не устанавливаются до первого Acquire/Ping,
// поэтому недоступная СУБД не мешает старту процесса
func (f *Factory) Open(ctx context.Context, cfg Config) (Adapter, error) {
	f.mu.RLock()
	constructor, ok := f.registry[cfg.Type]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown database type: %s (available types: %v)",
			cfg.Type, f.GetRegisteredTypes())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", cfg.Name, err)
	}

	adapter, err := constructor(ctx, cfg.WithDefaults())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s pool: %w", cfg.Type, err)
	}
	return adapter, nil
}

// ========== Global Factory ==========

var globalFactory = NewFactory()

// Register регистрирует адаптер в глобальной фабрике
// Эта функция обычно вызывается в init() функциях адаптеров
func Register(dbType string, constructor AdapterConstructor) {
	globalFactory.Register(dbType, constructor)
}

// IsRegistered проверяет регистрацию в глобальной фабрике
func IsRegistered(dbType string) bool {
	return globalFactory.IsRegistered(dbType)
}

// GetRegisteredTypes возвращает типы из глобальной фабрики
func GetRegisteredTypes() []string {
	return globalFactory.GetRegisteredTypes()
}

// Open создает адаптер через глобальную фабрику
//
// Пример:
//
//	adapter, err := adapters.Open(ctx, adapters.Config{
//	    Name: "fallback",
//	    Type: "sqlite",
//	    DSN:  "file:firvault.db",
//	})
func Open(ctx context.Context, cfg Config) (Adapter, error) {
	return globalFactory.Open(ctx, cfg)
}
