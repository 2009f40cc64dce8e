// Package sqlxrepos holds the postgres repositories.
package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/langhour/tracker/core"
)

// postgres error codes
const (
	pqInvalidTextRepresentation = "22P02"
	pqUniqueViolation           = "23505"
)

// dbError wraps err with op. Connection failures, resource exhaustion & timeouts become core.TransientError.
func dbError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return core.NewTransientError(op, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection exception, insufficient resources, operator intervention
			return core.NewTransientError(op, err)
		}
	}
	return errors.Wrap(err, op)
}

// notFound maps missing rows (and malformed ids) to the repository sentinel.
func notFound(op string, err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqInvalidTextRepresentation {
		return sentinel
	}
	return dbError(op, err)
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraint
}

// mustAffect returns sentinel when res touched no row.
func mustAffect(op string, res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(op, err)
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

// where builds a postgres WHERE clause. Every "?" in a condition is bound to that condition's argument.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// inTx runs fn in a transaction, rolled back when fn fails.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return dbError("beginning transaction", err)
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return dbError("committing transaction", tx.Commit())
}
