package repo

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/parkgolf/golf-bff/internal/apperr"
)

var (
	// ErrNotFound is returned by lookups that match no live row.
	ErrNotFound = gorm.ErrRecordNotFound
	// ErrDuplicate indicates a unique constraint rejected an insert.
	ErrDuplicate = errors.New("duplicate")
)

// Translate maps a persistence error onto the taxonomy. Recognized errors come
// back as *apperr.Error carrying the original as Cause; anything else is
// returned unchanged so the caller can decide. Translate(nil) is nil.
//
// Raw driver messages never end up in the client-facing message, only the
// constraint/table/column names when the driver reports them.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}

	if code, ok := sentinelCode(err); ok {
		return apperr.Wrap(err, code, "")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return withDetails(apperr.Wrap(err, sqlStateCode(pgErr.Code), ""),
			pgErr.ConstraintName, pgErr.TableName, pgErr.ColumnName)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return withDetails(apperr.Wrap(err, sqlStateCode(string(pqErr.Code)), ""),
			pqErr.Constraint, pqErr.Table, pqErr.Column)
	}

	if code, ok := sqliteCode(err.Error()); ok {
		return apperr.Wrap(err, code, "")
	}
	return err
}

func sentinelCode(err error) (apperr.Code, bool) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, sql.ErrNoRows):
		return apperr.CodeNotFound, true
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, ErrDuplicate):
		return apperr.CodeDuplicate, true
	case errors.Is(err, gorm.ErrForeignKeyViolated), errors.Is(err, gorm.ErrCheckConstraintViolated):
		return apperr.CodeRuleViolation, true
	case errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidValue),
		errors.Is(err, gorm.ErrInvalidValueOfLength),
		errors.Is(err, gorm.ErrPrimaryKeyRequired),
		errors.Is(err, gorm.ErrModelValueRequired),
		errors.Is(err, gorm.ErrEmptySlice):
		return apperr.CodeValidation, true
	case errors.Is(err, gorm.ErrInvalidField),
		errors.Is(err, gorm.ErrInvalidDB),
		errors.Is(err, gorm.ErrInvalidTransaction),
		errors.Is(err, gorm.ErrUnsupportedDriver),
		errors.Is(err, gorm.ErrNotImplemented),
		errors.Is(err, gorm.ErrMissingWhereClause),
		errors.Is(err, gorm.ErrUnsupportedRelation),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, sql.ErrTxDone),
		errors.Is(err, driver.ErrBadConn):
		return apperr.CodeDatabase, true
	}
	return "", false
}

// sqlStateCode classifies a PostgreSQL SQLSTATE.
func sqlStateCode(state string) apperr.Code {
	switch state {
	case "23505": // unique_violation
		return apperr.CodeDuplicate
	case "23503", "23514", "23P01": // foreign_key, check, exclusion
		return apperr.CodeRuleViolation
	case "23502": // not_null_violation
		return apperr.CodeValidation
	}
	if strings.HasPrefix(state, "22") { // data exception
		return apperr.CodeValidation
	}
	// Undefined column/table, connection exceptions (08), insufficient
	// resources (53), operator intervention (57) and everything else.
	return apperr.CodeDatabase
}

// sqliteCode matches the plain-text errors the pure-Go SQLite driver returns.
func sqliteCode(msg string) (apperr.Code, bool) {
	low := strings.ToLower(msg)
	switch {
	case strings.Contains(low, "unique constraint failed"),
		strings.Contains(low, "constraint failed: unique"):
		return apperr.CodeDuplicate, true
	case strings.Contains(low, "foreign key constraint failed"),
		strings.Contains(low, "check constraint failed"):
		return apperr.CodeRuleViolation, true
	case strings.Contains(low, "not null constraint failed"),
		strings.Contains(low, "datatype mismatch"):
		return apperr.CodeValidation, true
	case strings.Contains(low, "no such table"),
		strings.Contains(low, "no such column"),
		strings.Contains(low, "has no column named"),
		strings.Contains(low, "database is locked"),
		strings.Contains(low, "unable to open database"),
		strings.Contains(low, "disk i/o error"):
		return apperr.CodeDatabase, true
	}
	return "", false
}

func withDetails(e *apperr.Error, constraint, table, column string) *apperr.Error {
	if constraint != "" {
		e = e.WithDetail("constraint", constraint)
	}
	if table != "" {
		e = e.WithDetail("table", table)
	}
	if column != "" {
		e = e.WithDetail("column", column)
	}
	return e
}
