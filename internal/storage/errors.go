package storage

import (
	"errors"
	"strings"

	"github.com/conorfennell/foodmemory/internal/domain"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Write-time integrity failures. Each Create is a single transaction, so a
// rejected write leaves the store unchanged.
var (
	// ErrDuplicatePlaceID means a restaurant with the same google_place_id
	// already exists.
	ErrDuplicatePlaceID = errors.New("google_place_id already exists")

	// ErrRestaurantNotFound means a referenced restaurant row does not exist.
	ErrRestaurantNotFound = errors.New("restaurant does not exist")

	// ErrEntryNotFound means the addressed entry row does not exist.
	ErrEntryNotFound = errors.New("entry does not exist")
)

// classify maps SQLite extended result codes onto the store's error set.
// Anything unrecognised passes through untouched.
func classify(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return ErrDuplicatePlaceID
	case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
		return ErrRestaurantNotFound
	case sqlite3.SQLITE_CONSTRAINT_CHECK:
		return domain.ErrInvalidSentiment
	case sqlite3.SQLITE_CONSTRAINT_NOTNULL:
		return domain.ErrMissingRequiredField
	case sqlite3.SQLITE_CONSTRAINT:
		// The base code carries the constraint kind in the message only.
		msg := se.Error()
		switch {
		case strings.Contains(msg, "UNIQUE"):
			return ErrDuplicatePlaceID
		case strings.Contains(msg, "FOREIGN KEY"):
			return ErrRestaurantNotFound
		case strings.Contains(msg, "CHECK"):
			return domain.ErrInvalidSentiment
		case strings.Contains(msg, "NOT NULL"):
			return domain.ErrMissingRequiredField
		}
	}
	return err
}
