package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

// ErrDuplicate is returned when a write hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

// isUniqueViolation recognises unique constraint failures from either supported driver.
func isUniqueViolation(err error) bool {
	return pgCode(err) == uniqueViolation
}

// missingOnMalformedID maps a key that Postgres cannot cast to uuid onto sql.ErrNoRows:
// such an id can never match a row.
func missingOnMalformedID(err error) error {
	if pgCode(err) == invalidTextRepresentation {
		return sql.ErrNoRows
	}
	return err
}

func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
