package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeongSunghan/HotelRoomMatch-sub001/internal/codec"
)

var (
	selectPlain  = regexp.QuoteMeta(`SELECT v FROM kv_entries WHERE k = ?`)
	selectLocked = regexp.QuoteMeta(`SELECT v FROM kv_entries WHERE k = ? FOR UPDATE`)
	upsert       = regexp.QuoteMeta(`INSERT INTO kv_entries (k, v, version, updated_at)`)
	deleteRow    = regexp.QuoteMeta(`DELETE FROM kv_entries WHERE k = ?`)
)

func newMockSQL(t *testing.T) (*SQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQL(db, 0), mock
}

func TestSQLGet(t *testing.T) {
	s, mock := newMockSQL(t)
	raw, err := codec.Marshal(counter{N: 3})
	require.NoError(t, err)

	mock.ExpectQuery(selectPlain).WithArgs("a").WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(raw))
	mock.ExpectQuery(selectPlain).WithArgs("b").WillReturnRows(sqlmock.NewRows([]string{"v"}))

	var c counter
	ok, err := s.Get(context.Background(), "a", &c)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, c.N)

	ok, err = s.Get(context.Background(), "b", &c)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdate(t *testing.T) {
	s, mock := newMockSQL(t)

	mock.ExpectBegin()
	mock.ExpectQuery(selectLocked).WithArgs("a").WillReturnRows(sqlmock.NewRows([]string{"v"}))
	mock.ExpectExec(upsert).WithArgs("a", sqlmock.AnyArg(), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(deleteRow).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.Update(context.Background(), func(tx Tx) error {
		var c counter
		if _, err := tx.Get("a", &c); err != nil {
			return err
		}
		if err := tx.Put("a", counter{N: c.N + 1}); err != nil {
			return err
		}
		return tx.Delete("old")
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdateFnErrorRollsBack(t *testing.T) {
	s, mock := newMockSQL(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := s.Update(context.Background(), func(tx Tx) error {
		_ = tx.Put("a", counter{N: 1})
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdateRetriesDeadlockOnce(t *testing.T) {
	s, mock := newMockSQL(t)
	deadlock := &mysql.MySQLError{Number: errLockDeadlock, Message: "Deadlock found"}

	mock.ExpectBegin()
	mock.ExpectQuery(selectLocked).WithArgs("a").WillReturnError(deadlock)
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectQuery(selectLocked).WithArgs("a").WillReturnRows(sqlmock.NewRows([]string{"v"}))
	mock.ExpectExec(upsert).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	runs := 0
	err := s.Update(context.Background(), func(tx Tx) error {
		runs++
		if _, err := tx.Get("a", &counter{}); err != nil {
			return err
		}
		return tx.Put("a", counter{N: 1})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLUpdateSecondDeadlockIsConflict(t *testing.T) {
	s, mock := newMockSQL(t)
	deadlock := &mysql.MySQLError{Number: errLockDeadlock, Message: "Deadlock found"}

	for i := 0; i < maxAttempts; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(selectLocked).WithArgs("a").WillReturnError(deadlock)
		mock.ExpectRollback()
	}

	err := s.Update(context.Background(), func(tx Tx) error {
		_, err := tx.Get("a", &counter{})
		return err
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLConnectivityFailureIsUnavailable(t *testing.T) {
	s, mock := newMockSQL(t)
	mock.ExpectBegin().WillReturnError(errors.New("dial tcp: connection refused"))

	err := s.Update(context.Background(), func(tx Tx) error { return nil })
	assert.ErrorIs(t, err, ErrUnavailable)
}
