package postgres

import (
	"database/sql"
	"errors"
)

var errPickNotFound = errors.New("pick not found")

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// IsNotFound reports whether err came from a write against a missing pick.
func IsNotFound(err error) bool {
	return errors.Is(err, errPickNotFound) || isNotFound(err)
}
