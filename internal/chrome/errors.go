package chrome

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Sentinel errors for common history database conditions.
var (
	ErrDatabaseLocked = errors.New("history database is locked (is the browser still running?)")
	ErrNoHistory      = errors.New("history database not found")
	ErrClosed         = errors.New("history source closed")
)

// DBError describes a failed operation on a history database.
type DBError struct {
	Op    string
	Path  string
	Cause error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the cause and, for busy or locked failures, ErrDatabaseLocked.
func (e *DBError) Unwrap() []error {
	if isBusy(e.Cause) {
		return []error{ErrDatabaseLocked, e.Cause}
	}
	return []error{e.Cause}
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() & 0xFF {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
