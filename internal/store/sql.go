package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Schema is the DDL for the MySQL backend's single table.
const Schema = `CREATE TABLE IF NOT EXISTS kv_entries (
  k          VARCHAR(191) NOT NULL PRIMARY KEY,
  v          MEDIUMBLOB   NOT NULL,
  version    BIGINT       NOT NULL DEFAULT 1,
  updated_at DATETIME(6)  NOT NULL
) ENGINE=InnoDB`

// MySQL error numbers that mean "another transaction got there first".
const (
	errLockDeadlock    = 1213
	errLockWaitTimeout = 1205
)

// SQL is a Store over a MySQL table.  Update runs inside a transaction and
// reads with SELECT ... FOR UPDATE, so fn observes rows locked until
// commit.  Deadlocks between concurrent updates abort one side, which is
// re-run once.  Watch polls row versions.
type SQL struct {
	db   *sql.DB
	poll time.Duration
	now  func() time.Time
}

// NewSQL wraps an open database.  poll is the Watch polling interval.
func NewSQL(db *sql.DB, poll time.Duration) *SQL {
	if poll <= 0 {
		poll = time.Second
	}
	return &SQL{db: db, poll: poll, now: func() time.Time { return time.Now().UTC() }}
}

func (s *SQL) Get(ctx context.Context, key string, dst any) (bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv_entries WHERE k = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("get "+key, err)
	}
	return true, decode(key, data, dst)
}

type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
	buf *buffer
}

func (t *sqlTx) Get(key string, dst any) (bool, error) {
	if found, handled, err := readBuffered(t.buf, key, dst); handled {
		return found, err
	}
	var data []byte
	err := t.tx.QueryRowContext(t.ctx, `SELECT v FROM kv_entries WHERE k = ? FOR UPDATE`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapSQL("get "+key, err)
	}
	return true, decode(key, data, dst)
}

func (t *sqlTx) Put(key string, v any) error { return t.buf.put(key, v) }

func (t *sqlTx) Delete(key string) error {
	t.buf.del(key)
	return nil
}

func (s *SQL) Update(ctx context.Context, fn func(tx Tx) error) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.updateOnce(ctx, fn)
		if isLockConflict(err) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *SQL) updateOnce(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	t := &sqlTx{ctx: ctx, tx: tx, buf: newBuffer()}
	if err := fn(t); err != nil {
		return err
	}
	now := s.now()
	for _, k := range t.buf.order {
		v := t.buf.writes[k]
		if v == nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv_entries WHERE k = ?`, k); err != nil {
				return wrapSQL("delete "+k, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv_entries (k, v, version, updated_at) VALUES (?, ?, 1, ?)
			 ON DUPLICATE KEY UPDATE v = VALUES(v), version = version + 1, updated_at = VALUES(updated_at)`,
			k, v, now); err != nil {
			return wrapSQL("put "+k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapSQL("commit", err)
	}
	committed = true
	return nil
}

func isLockConflict(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == errLockDeadlock || me.Number == errLockWaitTimeout
	}
	return false
}

// wrapSQL keeps lock conflicts recognizable and marks everything else as a
// connectivity failure.
func wrapSQL(op string, err error) error {
	if isLockConflict(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return unavailable(op, err)
}

func (s *SQL) versions(ctx context.Context, keys []string) (map[string]int64, error) {
	if len(keys) == 0 {
		return map[string]int64{}, nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	q := `SELECT k, version FROM kv_entries WHERE k IN (?` + strings.Repeat(", ?", len(keys)-1) + `)`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int64, len(keys))
	for rows.Next() {
		var k string
		var v int64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

func sameVersions(a, b map[string]int64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func (s *SQL) Watch(ctx context.Context, keys ...string) (<-chan struct{}, error) {
	last, err := s.versions(ctx, keys)
	if err != nil {
		return nil, unavailable("watch", err)
	}
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			cur, err := s.versions(ctx, keys)
			if err != nil {
				// transient; try again next tick
				continue
			}
			if sameVersions(last, cur) {
				continue
			}
			last = cur
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}()
	return out, nil
}

func (s *SQL) Close() error { return s.db.Close() }
