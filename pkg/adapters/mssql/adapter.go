package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	mssql "github.com/denisenkom/go-mssqldb" // MS SQL Server driver

	"github.com/ruslano69/firvault/pkg/adapters"
	"github.com/ruslano69/firvault/pkg/adapters/base"
)

// AdapterType идентификатор MS SQL Server адаптера
const AdapterType = "mssql"

func init() {
	// Register MS SQL Server adapter in factory
	adapters.Register(AdapterType, Open)
}

// Open implements adapters.AdapterConstructor.
// The "sqlserver" driver name enables @p1, @p2 ... positional parameters.
func Open(_ context.Context, cfg adapters.Config) (adapters.Adapter, error) {
	db, err := sql.Open("sqlserver", BuildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return base.NewSQLAdapter(db, cfg, base.Dialect{
		Convention: adapters.ConventionAtP,
		Detector:   IsConnectionException,
		Rewrite:    Rewrite,
		ReadOnly:   base.ReadOnlyRollback,
	}), nil
}

// Rewrite приводит INSERT ... RETURNING и завершающий LIMIT к синтаксису T-SQL
func Rewrite(query string) string {
	return base.LimitToFetch(base.OutputInserted(query))
}

// BuildDSN returns cfg.DSN or assembles a sqlserver:// URL from parts.
func BuildDSN(cfg adapters.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	q := url.Values{}
	q.Set("database", cfg.Database)
	switch {
	case cfg.SSL.Mode == "disable":
		q.Set("encrypt", "disable")
	case cfg.SSL.Required():
		q.Set("encrypt", "true")
		if cfg.SSL.Mode == "require" {
			q.Set("TrustServerCertificate", "true")
		}
		if cfg.SSL.CAPath != "" {
			q.Set("certificate", cfg.SSL.CAPath)
		}
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.HostPort(),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// IsConnectionException reports server-side errors meaning the database
// is not reachable or not accepting sessions.
// 4060 (cannot open database) is a configuration or permission error and
// fails the same way on every attempt, so it is not listed.
func IsConnectionException(err error) bool {
	var msErr mssql.Error
	if !errors.As(err, &msErr) {
		return false
	}
	switch msErr.Number {
	case 233, // no process on the other end of the pipe
		10053, // transport-level error, connection aborted
		10054, // transport-level error, connection reset
		10060, // network-related error, timeout
		40197, // service error processing request
		40501, // service is busy
		40613: // database unavailable
		return true
	}
	return false
}

// IsUniqueViolation reports a unique index (2601) or constraint (2627) violation.
func IsUniqueViolation(err error) bool {
	var msErr mssql.Error
	if !errors.As(err, &msErr) {
		return false
	}
	return msErr.Number == 2601 || msErr.Number == 2627
}
