package store

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultChangeChannel is the pub/sub channel written keys are announced on.
const DefaultChangeChannel = "roommate:changes"

// Redis is a Store over a Redis server.  Update uses optimistic locking:
// every key fn reads is WATCHed right before the read and all buffered
// writes are applied in one MULTI/EXEC, together with a PUBLISH of each
// written key on the change channel.  EXEC aborts if any watched key
// changed in between.
type Redis struct {
	rdb     *goredis.Client
	prefix  string
	channel string
}

// NewRedis wraps an existing client.  prefix namespaces every key.
func NewRedis(rdb *goredis.Client, prefix string) (*Redis, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Redis{rdb: rdb, prefix: prefix, channel: prefix + DefaultChangeChannel}, nil
}

func (r *Redis) key(k string) string { return r.prefix + k }

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("get "+key, err)
	}
	return true, decode(key, data, dst)
}

type redisTx struct {
	ctx     context.Context
	r       *Redis
	tx      *goredis.Tx
	buf     *buffer
	watched map[string]bool
}

func (t *redisTx) Get(key string, dst any) (bool, error) {
	if found, handled, err := readBuffered(t.buf, key, dst); handled {
		return found, err
	}
	full := t.r.key(key)
	if !t.watched[full] {
		if err := t.tx.Watch(t.ctx, full).Err(); err != nil {
			return false, unavailable("watch "+key, err)
		}
		t.watched[full] = true
	}
	data, err := t.tx.Get(t.ctx, full).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("get "+key, err)
	}
	return true, decode(key, data, dst)
}

func (t *redisTx) Put(key string, v any) error { return t.buf.put(key, v) }

func (t *redisTx) Delete(key string) error {
	t.buf.del(key)
	return nil
}

func (r *Redis) Update(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := r.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			t := &redisTx{ctx: ctx, r: r, tx: tx, buf: newBuffer(), watched: map[string]bool{}}
			if err := fn(t); err != nil {
				return err
			}
			if t.buf.empty() {
				return nil
			}
			_, err := tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
				for _, k := range t.buf.order {
					if v := t.buf.writes[k]; v == nil {
						p.Del(ctx, r.key(k))
					} else {
						p.Set(ctx, r.key(k), v, 0)
					}
				}
				for _, k := range t.buf.order {
					p.Publish(ctx, r.channel, k)
				}
				return nil
			})
			return err
		})
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		if err != nil && isRedisNetErr(err) {
			return unavailable("update", err)
		}
		return err
	}
	return ErrConflict
}

// isRedisNetErr separates transport failures from errors returned by fn.
func isRedisNetErr(err error) bool {
	if errors.Is(err, ErrUnavailable) {
		return false
	}
	var re goredis.Error
	if errors.As(err, &re) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne)
}

func (r *Redis) Watch(ctx context.Context, keys ...string) (<-chan struct{}, error) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	sub := r.rdb.Subscribe(ctx, r.channel)
	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, unavailable("subscribe", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok {
					return
				}
				if m == nil || !want[m.Payload] {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
