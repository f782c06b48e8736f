package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Значения ротации по умолчанию
const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 5
)

// FileAppenderConfig - конфигурация file appender
type FileAppenderConfig struct {
	FilePath   string
	MaxSizeMB  int64 // размер, после которого файл ротируется
	MaxBackups int   // сколько старых файлов хранить: path.1 ... path.N
}

// FileAppender пишет записи в файл JSON lines с ротацией по размеру
type FileAppender struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	maxSize     int64
	maxBackups  int
	currentSize int64
}

// NewFileAppender открывает (или создает) файл журнала
func NewFileAppender(cfg FileAppenderConfig) (*FileAppender, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat audit file: %w", err)
	}

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}

	return &FileAppender{
		file:        file,
		path:        cfg.FilePath,
		maxSize:     cfg.MaxSizeMB * 1024 * 1024,
		maxBackups:  cfg.MaxBackups,
		currentSize: info.Size(),
	}, nil
}

// Append записывает одну строку JSON
func (fa *FileAppender) Append(_ context.Context, entry *Entry) error {
	data, err := entry.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}
	data = append(data, '\n')

	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.currentSize > 0 && fa.currentSize+int64(len(data)) > fa.maxSize {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("failed to rotate audit file: %w", err)
		}
	}

	n, err := fa.file.Write(data)
	fa.currentSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}

// rotate: path.N-1 → path.N, ..., path → path.1, новый пустой path
func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return err
	}

	for i := fa.maxBackups - 1; i > 0; i-- {
		from := fmt.Sprintf("%s.%d", fa.path, i)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, fmt.Sprintf("%s.%d", fa.path, i+1)); err != nil {
				return err
			}
		}
	}
	if err := os.Rename(fa.path, fa.path+".1"); err != nil {
		return err
	}

	file, err := os.OpenFile(fa.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return err
	}
	fa.file = file
	fa.currentSize = 0
	return nil
}

// Flush сбрасывает файл на диск
func (fa *FileAppender) Flush() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.file.Sync()
}

// Close закрывает файл
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if err := fa.file.Sync(); err != nil {
		_ = fa.file.Close()
		return err
	}
	return fa.file.Close()
}
