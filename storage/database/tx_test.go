package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-lms/core"
)

// recordingConn counts transaction outcomes; it runs no statements.
type recordingConn struct {
	commits, rollbacks int
}

func (c *recordingConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (c *recordingConn) Close() error                        { return nil }
func (c *recordingConn) Begin() (driver.Tx, error)           { return recordingTx{c}, nil }

type recordingTx struct{ c *recordingConn }

func (tx recordingTx) Commit() error   { tx.c.commits++; return nil }
func (tx recordingTx) Rollback() error { tx.c.rollbacks++; return nil }

type recordingConnector struct{ conn *recordingConn }

func (rc recordingConnector) Connect(context.Context) (driver.Conn, error) { return rc.conn, nil }
func (rc recordingConnector) Open(string) (driver.Conn, error)             { return rc.conn, nil }
func (rc recordingConnector) Driver() driver.Driver                        { return rc }

func newRecordingTransactor(t *testing.T) (core.Transactor, *recordingConn) {
	t.Helper()
	conn := new(recordingConn)
	db := sqlx.NewDb(sql.OpenDB(recordingConnector{conn}), "postgres")
	t.Cleanup(func() { _ = db.Close() })
	return NewTransactor(db), conn
}

func TestTransactor_WithinTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		tx, conn := newRecordingTransactor(t)
		require.NoError(t, tx.WithinTx(ctx, func(core.DBExecutor) error { return nil }))
		assert.Equal(t, 1, conn.commits)
		assert.Equal(t, 0, conn.rollbacks)
	})

	t.Run("rollback on error", func(t *testing.T) {
		tx, conn := newRecordingTransactor(t)
		errBoom := errors.New("boom")
		err := tx.WithinTx(ctx, func(core.DBExecutor) error { return errBoom })
		assert.Equal(t, errBoom, err)
		assert.Equal(t, 0, conn.commits)
		assert.Equal(t, 1, conn.rollbacks)
	})

	t.Run("rollback on panic", func(t *testing.T) {
		tx, conn := newRecordingTransactor(t)
		assert.PanicsWithValue(t, "boom", func() {
			_ = tx.WithinTx(ctx, func(core.DBExecutor) error { panic("boom") })
		})
		assert.Equal(t, 0, conn.commits)
		assert.Equal(t, 1, conn.rollbacks)
	})
}
