package db

import (
	stdErrors "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/marianocruz/pos-inventory-backend/pkg/errors"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation. When constraintName is provided, the helper requires that
// specific constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		if constraintName != "" {
			return pgErr.ConstraintName == constraintName
		}
		return true
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// TranslateError maps driver/gorm errors into the service error taxonomy so
// callers never branch on raw driver types.
func TranslateError(err error, op string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	if stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, op)
	}
	if IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, op)
	}
	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		// Class 40 (rollback) and class 08 (connection) are transient.
		if strings.HasPrefix(pgErr.Code, "40") || strings.HasPrefix(pgErr.Code, "08") {
			return pkgerrors.Wrap(pkgerrors.CodeRemoteIO, err, op)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
	}
	return pkgerrors.Wrap(pkgerrors.CodeRemoteIO, err, op)
}
