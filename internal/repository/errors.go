// Package repository holds the MySQL and Redis persistence for signups and
// rate-limit counters.  The sentinel values below let the service layer map
// storage outcomes onto its error taxonomy without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicatePending is returned by Create when the email already has an
// unused, unexpired signup.
var ErrDuplicatePending = errors.New("pending signup exists for email")

// ErrDuplicateToken is returned by Create when the token hash collides with
// an existing row.  Callers should issue a new token and retry.
var ErrDuplicateToken = errors.New("token hash already exists")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
