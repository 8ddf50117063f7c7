package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

type transactor struct {
	db *sqlx.DB
}

var _ core.Transactor = (*transactor)(nil) // interface compliance check

func NewTransactor(db *sqlx.DB) core.Transactor {
	return &transactor{db: db}
}

// WithinTx commits when fn succeeds and rolls back otherwise, including when fn panics.
// fn's error is returned as is.
func (t *transactor) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction (%v)", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
