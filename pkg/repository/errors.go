package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
	pgInvalidTextRepresent = "22P02"
)

// DomainErrors names the domain errors a repository maps storage failures to.
// A nil field leaves the matching failure unmapped.
type DomainErrors struct {
	NotFound  error
	Duplicate error
	Invalid   error
}

// MapError translates database errors to domain errors: sql.ErrNoRows to
// NotFound, unique violations to Duplicate, and check violations or
// malformed literals to Invalid. Other errors are returned unchanged.
func (d DomainErrors) MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && d.NotFound != nil {
		return d.NotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		if d.Duplicate != nil {
			return d.Duplicate
		}
	case pgCheckViolation, pgInvalidTextRepresent:
		if d.Invalid != nil {
			return d.Invalid
		}
	}
	return err
}
