package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirinyoku/raffle-go/internal/repository"
)

// SQLSTATE codes the repositories translate.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// translateDBErr maps driver errors onto repository sentinels. Concurrent
// writers losing a serializable race surface as ErrConflict; the caller
// decides whether to retry.
func translateDBErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if !errors.As(err, &pge) {
		return err
	}

	switch pge.Code {
	case codeUniqueViolation, codeForeignKeyViolation:
		return fmt.Errorf("%w: %s", repository.ErrConflict, pge.ConstraintName)
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", repository.ErrConflict, pge.Message)
	}

	return err
}

func wrapDBErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, translateDBErr(err))
}
