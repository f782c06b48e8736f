package fir

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type countingStations struct {
	codes map[int64]string
	calls int
	err   error
}

func (c *countingStations) StationCode(_ context.Context, id int64) (string, bool, error) {
	c.calls++
	if c.err != nil {
		return "", false, c.err
	}
	code, ok := c.codes[id]
	return code, ok, nil
}

func newCached(t *testing.T) (*CachedStations, *countingStations, *miniredis.Miniredis) {
	t.Helper()
	return newCachedWithLogger(t, zerolog.Nop())
}

func newCachedWithLogger(t *testing.T, logger zerolog.Logger) (*CachedStations, *countingStations, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	inner := &countingStations{codes: map[int64]string{1: "KTM"}}
	return NewCachedStations(inner, rdb, time.Hour, logger), inner, mr
}

func TestCachedStationsHit(t *testing.T) {
	cached, inner, mr := newCached(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		code, ok, err := cached.StationCode(ctx, 1)
		if err != nil || !ok || code != "KTM" {
			t.Fatalf("StationCode = %q, %v, %v", code, ok, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("ожидался 1 запрос к БД, получено %d", inner.calls)
	}

	got, err := mr.Get(stationKey(1))
	if err != nil || got != "KTM" {
		t.Errorf("в Redis ожидался KTM, получено %q (%v)", got, err)
	}
	if ttl := mr.TTL(stationKey(1)); ttl != time.Hour {
		t.Errorf("TTL = %v, ожидался 1h", ttl)
	}
}

func TestCachedStationsMissNotCached(t *testing.T) {
	cached, inner, mr := newCached(t)
	ctx := context.Background()

	_, ok, err := cached.StationCode(ctx, 2)
	if err != nil || ok {
		t.Fatalf("ожидалось отсутствие участка, получено ok=%v err=%v", ok, err)
	}
	if mr.Exists(stationKey(2)) {
		t.Error("отсутствующий участок не должен кэшироваться")
	}

	// Участок создан позже - виден сразу
	inner.codes[2] = "LTP"
	code, ok, err := cached.StationCode(ctx, 2)
	if err != nil || !ok || code != "LTP" {
		t.Errorf("StationCode = %q, %v, %v", code, ok, err)
	}
}

func TestCachedStationsRedisDown(t *testing.T) {
	cached, inner, mr := newCached(t)
	mr.Close()

	code, ok, err := cached.StationCode(context.Background(), 1)
	if err != nil || !ok || code != "KTM" {
		t.Fatalf("при недоступном Redis ожидался ответ из БД: %q, %v, %v", code, ok, err)
	}
	if inner.calls != 1 {
		t.Errorf("ожидался 1 запрос к БД, получено %d", inner.calls)
	}
}

// Сбой Redis пишется в переданный логгер, а не в глобальный
func TestCachedStationsLogsToInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	cached, _, mr := newCachedWithLogger(t, zerolog.New(&buf).Level(zerolog.DebugLevel))
	mr.Close()

	if _, _, err := cached.StationCode(context.Background(), 1); err != nil {
		t.Fatalf("StationCode: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "station cache read failed") {
		t.Errorf("ожидалась запись о сбое кэша, получено: %s", out)
	}
	if !strings.Contains(out, `"component":"station_cache"`) {
		t.Errorf("ожидалось поле component: %s", out)
	}
}

func TestCachedStationsInnerError(t *testing.T) {
	cached, inner, _ := newCached(t)
	inner.err = errors.New("db down")

	if _, _, err := cached.StationCode(context.Background(), 1); !errors.Is(err, inner.err) {
		t.Errorf("ожидалась ошибка БД, получено %v", err)
	}
}
