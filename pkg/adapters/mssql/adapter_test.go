package mssql

import (
	"context"
	"net/url"
	"testing"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruslano69/firvault/pkg/adapters"
)

func TestBuildDSN(t *testing.T) {
	dsn := BuildDSN(adapters.Config{
		Host: "sql", Port: 1433, User: "sa", Password: "secret", Database: "firvault",
		SSL: adapters.SSLConfig{Mode: "require"},
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "sql:1433", u.Host)
	assert.Equal(t, "firvault", u.Query().Get("database"))
	assert.Equal(t, "true", u.Query().Get("encrypt"))
	assert.Equal(t, "true", u.Query().Get("TrustServerCertificate"))

	assert.Equal(t, "sqlserver://x", BuildDSN(adapters.Config{DSN: "sqlserver://x"}))
}

func TestErrorDetectors(t *testing.T) {
	assert.True(t, IsConnectionException(mssql.Error{Number: 40613}))
	assert.True(t, IsConnectionException(mssql.Error{Number: 10054}))
	assert.False(t, IsConnectionException(mssql.Error{Number: 208}))
	// неверное имя БД или нет прав: повтор на другом пуле не поможет
	assert.False(t, IsConnectionException(mssql.Error{Number: 4060}))
	assert.False(t, IsConnectionException(mssql.Error{Number: 18456}))

	assert.True(t, IsUniqueViolation(mssql.Error{Number: 2627}))
	assert.True(t, IsUniqueViolation(mssql.Error{Number: 2601}))
	assert.False(t, IsUniqueViolation(mssql.Error{Number: 547}))
}

func TestOpenIsLazy(t *testing.T) {
	a, err := adapters.Open(context.Background(), adapters.Config{
		Name: "fallback", Type: AdapterType, Host: "127.0.0.1", Port: 1, Database: "x",
	})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, adapters.ConventionAtP, a.Convention())
	assert.Equal(t, "mssql", a.GetDatabaseType())
}

func TestRewrite(t *testing.T) {
	assert.Equal(t,
		"INSERT INTO stations (code,name) OUTPUT INSERTED.id VALUES (@p1,@p2)",
		Rewrite("INSERT INTO stations (code,name) VALUES (@p1,@p2) RETURNING id"))
	assert.Equal(t,
		"SELECT id FROM cases ORDER BY created_at DESC OFFSET 0 ROWS FETCH NEXT 10 ROWS ONLY",
		Rewrite("SELECT id FROM cases ORDER BY created_at DESC LIMIT 10"))
	assert.Equal(t, "SELECT 1", Rewrite("SELECT 1"))
}
