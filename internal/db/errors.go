package db

import (
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinical-encounters/internal/apperr"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// Classify turns serialization conflicts and connection loss into
// apperr.ErrTransientStore so callers know a retry may succeed. Everything
// else is returned unchanged.
func Classify(err error) error {
	if err == nil || errors.Is(err, apperr.ErrTransientStore) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %w", apperr.ErrTransientStore, err)
		}
		return err
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %w", apperr.ErrTransientStore, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", apperr.ErrTransientStore, err)
	}

	return err
}

// ConstraintViolated reports whether err is a unique violation on constraint.
func ConstraintViolated(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == constraint
}
