package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ruslano69/firvault/pkg/adapters"
)

// pgConn - соединение pgxpool, выданное адаптером
type pgConn struct {
	conn *pgxpool.Conn
}

// Query выполняет запрос и читает все строки результата
func (c *pgConn) Query(ctx context.Context, sql string, args ...any) ([]adapters.Row, error) {
	rows, err := c.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return readRows(rows)
}

// QueryReadOnly выполняет запрос в транзакции READ ONLY и откатывает ее
func (c *pgConn) QueryReadOnly(ctx context.Context, sql string, args ...any) ([]adapters.Row, error) {
	tx, err := c.conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	rows, err := tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return readRows(rows)
}

// Release возвращает соединение в пул
func (c *pgConn) Release() {
	c.conn.Release()
}

// readRows читает все строки и закрывает rows
// Ошибки сервера pgx возвращает через rows.Err(), поэтому проверяем его после цикла
func readRows(rows pgx.Rows) ([]adapters.Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := make([]adapters.Row, 0)

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		row := make(adapters.Row, len(fields))
		for i, fd := range fields {
			if b, ok := values[i].([]byte); ok {
				row[fd.Name] = string(b)
				continue
			}
			row[fd.Name] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
