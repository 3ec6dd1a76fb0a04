package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorClass buckets database failures by whether a retry can help.
type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

// ClassifyError maps a Postgres error to an ErrorClass using its SQLSTATE.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		}
	}
	return ErrorClassPermanent
}

// IsRetryable reports whether err is worth retrying in a fresh transaction.
func IsRetryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorClassTransient, ErrorClassDeadlock, ErrorClassSerialization:
		return true
	default:
		return false
	}
}
