package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/shopassist/internal/db"
)

func newMockStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	c := mock.NewClient(gomock.NewController(t))
	return NewStoreForTest(c), c
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addrs")
	}
}

func TestPing(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(context.DeadlineExceeded)),
	)

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Ping(context.Background()); !isOp(err, db.OpPing) {
		t.Errorf("expected PING db.Error, got %v", err)
	}
}

func TestWaitForReady_RetriesUntilPong(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("loading"))).Times(2),
		c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.Result(mock.RedisString("PONG"))),
	)

	if err := s.WaitForReady(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("PING")).Return(mock.ErrorResult(errors.New("refused"))).MinTimes(1)

	err := s.WaitForReady(context.Background(), 120*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestHSetNX_ReturnsResultingHash(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("HSETNX", "session:1", "user_id", "u2"),
			mock.Match("EXPIRE", "session:1", "3600"),
			mock.Match("HGETALL", "session:1"),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(0)),
			mock.Result(mock.RedisInt64(1)),
			mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
				"user_id": mock.RedisString("u1"),
			})),
		})

	m, err := s.HSetNX(context.Background(), "session:1", map[string]string{"user_id": "u2"}, time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["user_id"] != "u1" {
		t.Errorf("first writer should win, got %v", m)
	}
}

func TestHSetNX_PipelineError(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.ErrorResult(context.DeadlineExceeded),
			mock.Result(mock.RedisMap(nil)),
		})

	_, err := s.HSetNX(context.Background(), "k", map[string]string{"f": "v"}, 0)
	if !isOp(err, db.OpHSetNX) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped HSETNX error, got %v", err)
	}
}

func TestAppendCapped(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		DoMulti(gomock.Any(),
			mock.Match("RPUSH", "history", "m1", "m2"),
			mock.Match("LTRIM", "history", "-40", "-1"),
			mock.Match("EXPIRE", "history", "86400"),
		).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(2)),
			mock.Result(mock.RedisString("OK")),
			mock.Result(mock.RedisInt64(1)),
		})

	err := s.AppendCapped(context.Background(), "history", [][]byte{[]byte("m1"), []byte("m2")}, 40, 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAppendCapped_NoValuesIsNoop(t *testing.T) {
	s, _ := newMockStore(t)
	if err := s.AppendCapped(context.Background(), "history", nil, 40, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTail(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("LRANGE", "history", "-20", "-1")).
		Return(mock.Result(mock.RedisArray(mock.RedisBlobString("m1"), mock.RedisBlobString("m2"))))

	vals, err := s.Tail(context.Background(), "history", 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 2 || string(vals[1]) != "m2" {
		t.Errorf("unexpected values: %q", vals)
	}
}

func TestGet(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("GET", "cart")).Return(mock.Result(mock.RedisBlobString("{}"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("GET", "cart")).Return(mock.Result(mock.RedisNil())),
	)

	if data, err := s.Get(context.Background(), "cart"); err != nil || string(data) != "{}" {
		t.Fatalf("got %q, %v", data, err)
	}
	if _, err := s.Get(context.Background(), "cart"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMGet_MixedHits(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("MGET", "a", "b", "c")).
		Return(mock.Result(mock.RedisArray(
			mock.RedisBlobString("1"),
			mock.RedisNil(),
			mock.RedisBlobString("3"),
		)))

	vals, err := s.MGet(context.Background(), "a", "b", "c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != 3 || string(vals[0]) != "1" || vals[1] != nil || string(vals[2]) != "3" {
		t.Errorf("unexpected values: %q", vals)
	}
}

func TestSetWithTTL(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "emb:1", "vec", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := s.SetWithTTL(context.Background(), "emb:1", []byte("vec"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDel_Error(t *testing.T) {
	s, c := newMockStore(t)
	c.EXPECT().Do(gomock.Any(), mock.Match("DEL", "cart")).Return(mock.ErrorResult(context.Canceled))

	if err := s.Del(context.Background(), "cart"); !isOp(err, db.OpDel) {
		t.Errorf("expected DEL db.Error, got %v", err)
	}
}

func TestCounterCommands(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("INCRBY", "tokens", "5")).Return(mock.Result(mock.RedisInt64(5))),
		c.EXPECT().Do(gomock.Any(), mock.Match("EXPIRE", "tokens", "300", "NX")).Return(mock.Result(mock.RedisInt64(1))),
		c.EXPECT().Do(gomock.Any(), mock.Match("EXPIRE", "tokens", "300")).Return(mock.Result(mock.RedisInt64(1))),
	)

	ctx := context.Background()
	if err := s.IncrBy(ctx, "tokens", 5); err != nil {
		t.Fatal(err)
	}
	if err := s.Expire(ctx, "tokens", 5*time.Minute, true); err != nil {
		t.Fatal(err)
	}
	if err := s.Expire(ctx, "tokens", 5*time.Minute, false); err != nil {
		t.Fatal(err)
	}
}

func TestScan_MultiPage(t *testing.T) {
	s, c := newMockStore(t)
	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("SCAN", "0", "MATCH", "cart:u1:*", "COUNT", "100")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisInt64(42),
				mock.RedisArray(mock.RedisString("cart:u1:s1")),
			))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("SCAN", "42", "MATCH", "cart:u1:*", "COUNT", "100")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisInt64(0),
				mock.RedisArray(mock.RedisString("cart:u1:s2")),
			))),
	)

	keys, err := s.Scan(context.Background(), "cart:u1:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[1] != "cart:u1:s2" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func isOp(err error, op string) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr) && dbErr.Op == op
}
