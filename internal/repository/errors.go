package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate key value")

	// ErrReferenceMissing is returned when a foreign key target no longer exists.
	ErrReferenceMissing = errors.New("referenced row missing")

	// ErrAlreadyResolved is returned when a report has left the unresolved state.
	ErrAlreadyResolved = errors.New("report already resolved")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgInvalidText         = "22P02"
)

// mapPgError folds constraint violations into repository sentinels.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", ErrReferenceMissing, pgErr.ConstraintName)
	case pgInvalidText:
		// malformed ids can never match a row
		return pgx.ErrNoRows
	}
	return err
}
