package core

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is implemented by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	DB interface {
		DBExecutor

		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
		Close() error
	}

	// Transactor runs fn inside a single database transaction.
	// fn receives the executor every repository call of the transaction must use.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CheckOrdering fails with a ValidationError if an ordering field is not in allowed.
func CheckOrdering(ordering []DBOrdering, allowed []string) error {
	for _, ord := range ordering {
		found := false
		for _, field := range allowed {
			if ord.Field == field {
				found = true
				break
			}
		}
		if !found {
			return NewValidationError(nil, FieldError{Field: "ordering", Error: "unknown ordering field: " + ord.Field})
		}
	}
	return nil
}
