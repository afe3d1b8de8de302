package repository

import (
	"database/sql"
	"errors"
)

// isNoRows reports whether err is the driver's empty-result sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
