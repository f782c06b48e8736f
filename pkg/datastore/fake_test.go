package datastore

import (
	"bytes"
	"context"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ruslano69/firvault/pkg/adapters"
)

// fakeAdapter - пул в памяти, запоминающий запросы
type fakeAdapter struct {
	name string
	conv adapters.Convention

	mu         sync.Mutex
	dbType     string
	queries    []string
	readOnly   []bool
	args       [][]any
	rows       []adapters.Row
	queryErr   error
	acquireErr error
	pingErr    error
	detector   func(error) bool

	acquired atomic.Int32
	released atomic.Int32
}

func newFake(name string, conv adapters.Convention) *fakeAdapter {
	return &fakeAdapter{name: name, conv: conv, dbType: "fake"}
}

func (f *fakeAdapter) Acquire(ctx context.Context) (adapters.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	err := f.acquireErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f.acquired.Add(1)
	return &fakeConn{f: f}, nil
}

func (f *fakeAdapter) Ping(context.Context) error          { return f.pingErr }
func (f *fakeAdapter) Close() error                        { return nil }
func (f *fakeAdapter) Name() string                        { return f.name }
func (f *fakeAdapter) GetDatabaseType() string             { return f.dbType }
func (f *fakeAdapter) Convention() adapters.Convention     { return f.conv }
func (f *fakeAdapter) Stats() adapters.PoolStats           { return adapters.PoolStats{MaxConns: 10} }
func (f *fakeAdapter) IsConnectionException(err error) bool {
	return f.detector != nil && f.detector(err)
}

func (f *fakeAdapter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeAdapter) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

// lastReadOnly - выполнен ли последний запрос через QueryReadOnly
func (f *fakeAdapter) lastReadOnly() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.readOnly) == 0 {
		return false
	}
	return f.readOnly[len(f.readOnly)-1]
}

type fakeConn struct {
	f *fakeAdapter
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) ([]adapters.Row, error) {
	return c.record(sql, args, false)
}

func (c *fakeConn) QueryReadOnly(_ context.Context, sql string, args ...any) ([]adapters.Row, error) {
	return c.record(sql, args, true)
}

func (c *fakeConn) record(sql string, args []any, readOnly bool) ([]adapters.Row, error) {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.f.queries = append(c.f.queries, sql)
	c.f.readOnly = append(c.f.readOnly, readOnly)
	c.f.args = append(c.f.args, args)
	if c.f.queryErr != nil {
		return nil, c.f.queryErr
	}
	return c.f.rows, nil
}

func (c *fakeConn) Release() {
	c.f.released.Add(1)
}

// connRefused - ошибка, как ее возвращает net.Dial на закрытый порт
func connRefused() error {
	return &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
	}
}

// logBuffer - потокобезопасный приемник логов
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) count(substr string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Count(b.buf.String(), substr)
}

func newTestLogger() (zerolog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return zerolog.New(buf).Level(zerolog.WarnLevel), buf
}
