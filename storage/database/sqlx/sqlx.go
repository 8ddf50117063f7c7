package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-lms/core"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type repository struct {
	exec    core.DBExecutor
	timeout time.Duration
}

func newRepository(exec core.DBExecutor, conf *core.Config) repository {
	return repository{exec: exec, timeout: conf.Database.QueryTimeout}
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// ctx bounds every query with the configured query timeout.
func (repo repository) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	return core.WithTimeout(ctx, repo.timeout)
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return ok && pqErr.Code == foreignKeyViolation
}

func checkAffected(res sql.Result, notFound error, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// where accumulates AND-ed conditions written with "?" bind vars.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// orderBy translates ordering into an ORDER BY clause; unknown fields are skipped.
func orderBy(ordering []core.DBOrdering, columns map[string]string, defaultOrder string) string {
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := columns[ord.Field]; ok {
			orderList = append(orderList, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	if len(orderList) == 0 {
		orderList = append(orderList, defaultOrder)
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
