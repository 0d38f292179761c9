package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/shopassist/internal/db"
)

// AppendCapped pushes values to the tail of a list, keeps only the newest
// keep elements and refreshes the TTL in one round trip.
func (s *Store) AppendCapped(ctx context.Context, key string, values [][]byte, keep int64, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	elems := make([]string, len(values))
	for i, v := range values {
		elems[i] = rueidis.BinaryString(v)
	}
	cmds := []rueidis.Completed{s.b().Rpush().Key(key).Element(elems...).Build()}
	if keep > 0 {
		cmds = append(cmds, s.b().Ltrim().Key(key).Start(-keep).Stop(-1).Build())
	}
	if ttl > 0 {
		cmds = append(cmds, s.b().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build())
	}
	_, err := s.pipeline(ctx, db.OpAppend, cmds...)
	return err
}

// Tail returns up to n of the newest list elements, oldest first.
func (s *Store) Tail(ctx context.Context, key string, n int64) ([][]byte, error) {
	msgs, err := s.do(ctx, s.b().Lrange().Key(key).Start(-n).Stop(-1).Build()).ToArray()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	out := make([][]byte, 0, len(msgs))
	for i := range msgs {
		v, err := msgs[i].AsBytes()
		if err != nil {
			return nil, &db.Error{Op: db.OpLRange, Err: err}
		}
		out = append(out, v)
	}
	return out, nil
}
