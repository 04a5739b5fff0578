// internal/pkg/apperror/postgres.go
package apperror

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
	numericOverflow = "22003"
)

// IsUniqueViolation reports whether err is a postgres duplicate-key failure
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// IsDataViolation reports whether postgres rejected a value itself: a CHECK
// constraint failure or a number too large for its column
func IsDataViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == checkViolation || pgErr.Code == numericOverflow
}

// IsNotFound reports whether err is gorm's missing-record error
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
