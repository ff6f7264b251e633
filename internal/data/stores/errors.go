package stores

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func sqliteCode(err error) (int, bool) {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return 0, false
	}
	// Extended result codes keep the primary code in the low byte.
	return serr.Code() & 0xff, true
}

// IsBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED.
func IsBusy(err error) bool {
	code, ok := sqliteCode(err)
	return ok && (code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED)
}

// IsCorrupt reports whether err means the journal file is not a usable
// SQLite database.
func IsCorrupt(err error) bool {
	if code, ok := sqliteCode(err); ok {
		return code == sqlite3.SQLITE_CORRUPT || code == sqlite3.SQLITE_NOTADB
	}
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database disk image is malformed") ||
		strings.Contains(msg, "file is not a database")
}

// MoveAside renames the journal at path and its -wal and -shm companions to
// "<name>.corrupt.<timestamp>" so a fresh journal can be created. It returns
// the new path of the main file, or "" when there was none.
func MoveAside(path string, now time.Time) (string, error) {
	backup := fmt.Sprintf("%s.corrupt.%s", path, now.Format("20060102-150405"))

	moved := ""
	for _, suffix := range []string{"", "-wal", "-shm"} {
		err := os.Rename(path+suffix, backup+suffix)
		switch {
		case err == nil:
			if suffix == "" {
				moved = backup
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			// A stale -wal or -shm next to a fresh file corrupts it again.
			if rmErr := os.Remove(path + suffix); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				return moved, fmt.Errorf("move aside %s: %w", path+suffix, err)
			}
		}
	}
	return moved, nil
}
