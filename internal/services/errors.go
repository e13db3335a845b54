package services

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrNotFound means a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the request clashes with the current state of a record.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials is returned by Login for an unknown phone and for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUnitNameTaken     = fmt.Errorf("%w: emergency unit name already exists", ErrConflict)
	ErrUnitOccupied      = fmt.Errorf("%w: emergency unit is already assigned to an open emergency", ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: invalid emergency status change", ErrConflict)
	ErrDuplicateContact  = fmt.Errorf("%w: duplicate emergency contact phone", ErrConflict)
	ErrPhoneTaken        = fmt.Errorf("%w: phone already registered", ErrConflict)
)

func notFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// noRows maps sql.ErrNoRows to ErrNotFound for the given entity.
func noRows(err error, entity string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(entity, id)
	}
	return err
}

// isUniqueViolation recognises unique-constraint failures from Postgres and SQLite.
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
