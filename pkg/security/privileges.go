package security

import (
	"errors"
	"os"
	"runtime"
)

// ErrPrivileged - процесс запущен от root/Administrator
var ErrPrivileged = errors.New("refusing to run with administrative privileges")

// IsAdmin проверяет, запущена ли программа с административными правами.
//
// Unix: effective UID == 0. Windows: удалось открыть \\.\PHYSICALDRIVE0,
// что доступно только администраторам.
func IsAdmin() bool {
	if runtime.GOOS == "windows" {
		return isWindowsAdmin()
	}
	return os.Geteuid() == 0
}

func isWindowsAdmin() bool {
	file, err := os.Open("\\\\.\\PHYSICALDRIVE0")
	if err != nil {
		return false
	}
	file.Close()
	return true
}

// Guard возвращает ErrPrivileged, если процесс запущен от администратора
// и allowAdmin не задан
func Guard(allowAdmin bool) error {
	return guard(IsAdmin(), allowAdmin)
}

func guard(isAdmin, allowAdmin bool) error {
	if isAdmin && !allowAdmin {
		return ErrPrivileged
	}
	return nil
}

// CurrentUser возвращает имя пользователя ОС (для журнала доступа CLI)
func CurrentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	if user := os.Getenv("USERNAME"); user != "" {
		return user
	}
	return "unknown"
}
