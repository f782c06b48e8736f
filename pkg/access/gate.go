// Package access - проверка прав: (роль, действие) → разрешено/запрещено.
//
// Таблица прав статическая: фиксированный массив [numRoles][numActions].
// Лишняя строка или столбец не компилируется; пропущенная ячейка означает запрет.
package access

import (
	"fmt"

	"github.com/ruslano69/firvault/pkg/faults"
)

// Role - роль пользователя
type Role int

const (
	Admin Role = iota
	Supervisor
	Officer
	Clerk

	numRoles
)

var roleNames = [numRoles]string{
	Admin:      "Admin",
	Supervisor: "Supervisor",
	Officer:    "Officer",
	Clerk:      "Clerk",
}

// String - имя роли
func (r Role) String() string {
	if r < 0 || r >= numRoles {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// Action - действие над данными
type Action int

const (
	CasesRead Action = iota
	CasesCreate
	CasesUpdate
	CasesDelete
	PersonsRead
	PersonsCreate
	PersonsUpdate
	StationsRead
	StationsManage
	UsersManage
	ReportsRead

	numActions
)

var actionNames = [numActions]string{
	CasesRead:      "cases.read",
	CasesCreate:    "cases.create",
	CasesUpdate:    "cases.update",
	CasesDelete:    "cases.delete",
	PersonsRead:    "persons.read",
	PersonsCreate:  "persons.create",
	PersonsUpdate:  "persons.update",
	StationsRead:   "stations.read",
	StationsManage: "stations.manage",
	UsersManage:    "users.manage",
	ReportsRead:    "reports.read",
}

// String - ключ действия ("cases.read")
func (a Action) String() string {
	if a < 0 || a >= numActions {
		return fmt.Sprintf("Action(%d)", int(a))
	}
	return actionNames[a]
}

// Сокращения для таблицы
const (
	y = true
	n = false
)

// table - права по ролям; столбцы в порядке констант Action:
//
//	cases: read create update delete | persons: read create update | stations: read manage | users | reports
var table = [numRoles][numActions]bool{
	Admin:      {y, y, y, y, y, y, y, y, y, y, y},
	Supervisor: {y, y, y, n, y, y, y, y, n, n, y},
	Officer:    {y, y, y, n, y, y, y, y, n, n, n},
	Clerk:      {y, n, n, n, y, n, n, y, n, n, n},
}

// Permitted сообщает, разрешено ли действие роли
// Чистая функция: неизвестная роль или действие → false
func Permitted(role Role, action Action) bool {
	if role < 0 || role >= numRoles || action < 0 || action >= numActions {
		return false
	}
	return table[role][action]
}

// PermittedString - то же для строковых роли и действия
func PermittedString(role, action string) bool {
	r, err := ParseRole(role)
	if err != nil {
		return false
	}
	a, err := ParseAction(action)
	if err != nil {
		return false
	}
	return Permitted(r, a)
}

// Check возвращает faults.ErrForbidden, если действие запрещено
func Check(role Role, action Action) error {
	if Permitted(role, action) {
		return nil
	}
	return faults.Newf(faults.KindForbidden, action.String(), "role %s may not %s", role, action)
}

// ParseRole разбирает имя роли (регистр важен: "Officer")
func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if name == s {
			return Role(r), nil
		}
	}
	return 0, fmt.Errorf("unknown role: %q", s)
}

// ParseAction разбирает ключ действия ("cases.create")
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return Action(a), nil
		}
	}
	return 0, fmt.Errorf("unknown action: %q", s)
}

// Roles возвращает все роли
func Roles() []Role {
	roles := make([]Role, numRoles)
	for i := range roles {
		roles[i] = Role(i)
	}
	return roles
}

// Actions возвращает все действия
func Actions() []Action {
	actions := make([]Action, numActions)
	for i := range actions {
		actions[i] = Action(i)
	}
	return actions
}
