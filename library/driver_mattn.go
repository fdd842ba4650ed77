//go:build !modernc

package library

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

// driverDSN enables busy_timeout and foreign keys on every connection.
func driverDSN(dbPath string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
}

func constraintOf(err error) constraint {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return constraintNone
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique:
		return constraintUnique
	case sqlite3.ErrConstraintForeignKey:
		return constraintForeignKey
	case sqlite3.ErrConstraintCheck:
		return constraintCheck
	}
	return constraintOther
}
