package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Structured failure conditions surfaced by the record store. Repositories
// classify driver errors here so callers branch on errors.Is instead of
// matching message text.
var (
	ErrNotFound        = errors.New("record not found")
	ErrUniqueViolation = errors.New("unique constraint violation")
)

const pqUniqueViolation = "23505"

// Classify maps a database/sql or lib/pq error onto the store taxonomy.
// nil passes through; unrecognized errors are wrapped unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
		return fmt.Errorf("%w: %s", ErrUniqueViolation, pqErr.Constraint)
	}
	return err
}
