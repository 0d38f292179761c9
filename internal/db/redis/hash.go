package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/shopassist/internal/db"
)

// HSetNX writes each field only when absent, refreshes the key TTL and
// returns the resulting hash, all in one round trip. Concurrent callers
// race on HSETNX, so the first writer of a field wins.
func (s *Store) HSetNX(ctx context.Context, key string, fields map[string]string, ttl time.Duration) (map[string]string, error) {
	cmds := make([]rueidis.Completed, 0, len(fields)+2)
	for f, v := range fields {
		cmds = append(cmds, s.b().Hsetnx().Key(key).Field(f).Value(v).Build())
	}
	if ttl > 0 {
		cmds = append(cmds, s.b().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build())
	}
	cmds = append(cmds, s.b().Hgetall().Key(key).Build())

	res, err := s.pipeline(ctx, db.OpHSetNX, cmds...)
	if err != nil {
		return nil, err
	}
	m, err := res[len(res)-1].AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHSetNX, Err: err}
	}
	return m, nil
}
