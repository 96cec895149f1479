package repository

import (
	"errors"
	"fmt"

	"github.com/Eursukkul/ticketing-service/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the repositories care about.
const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgInvalidTextRepr      = "22P02"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
)

// translateError maps driver errors onto the model sentinels. Contention is
// reported as ErrConflict so callers know a retry may succeed.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgQueryCanceled:
		return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.Message)
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", models.ErrDuplicate, pgErr.ConstraintName)
	case pgCheckViolation:
		return fmt.Errorf("%w: %s", models.ErrCapacityBelowSold, pgErr.ConstraintName)
	}
	return err
}

func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepr
}
