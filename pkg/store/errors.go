package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hashicorp-forge/courier/pkg/models"
)

// SQLSTATE codes of interest.
const (
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
)

// IsBenignRace reports whether err is a write failure caused by an entity
// disappearing while the event was in flight: a not-null violation, or a
// foreign key violation on the delivery row's user reference. Retrying such
// an event hits the same condition.
func IsBenignRace(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeNotNullViolation:
		return true
	case codeForeignKeyViolation:
		return pgErr.ConstraintName == models.UserNotificationUserConstraint
	}
	return false
}
