// Package base предоставляет общую реализацию adapters.Adapter поверх database/sql.
//
// SQLite, MySQL и MS SQL Server отличаются драйвером, форматом позиционных
// параметров, тем, какие ошибки драйвера означают недоступность СУБД, и
// способом вернуть сгенерированный ключ. Эти различия описывает Dialect,
// остальное (выдача соединений, лимиты пула, чтение строк) общее:
//
//	db, err := sql.Open("mysql", dsn)
//	adapter := base.NewSQLAdapter(db, cfg, base.Dialect{
//	    Convention:   adapters.ConventionQuestion,
//	    Detector:     isConnectionException,
//	    LastInsertID: true,
//	    ReadOnly:     base.ReadOnlyTx,
//	})
//
// Запросы пишутся в одной форме ("?" и INSERT ... RETURNING id); Dialect
// приводит их к форме конкретной СУБД.
package base
