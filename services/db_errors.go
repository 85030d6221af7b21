package services

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL errno values the services branch on.
const (
	mysqlErrLockNowait      = 3572 // NOWAIT lock request failed immediately
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDuplicateEntry  = 1062
)

// IsLockContention reports whether err is a MySQL row-lock acquisition
// failure, i.e. the fail-fast outcome of FOR UPDATE NOWAIT.
func IsLockContention(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrLockNowait || myErr.Number == mysqlErrLockWaitTimeout
	}
	return false
}

// IsDuplicateEntry reports whether err is a MySQL unique-constraint
// violation, such as a concurrent insert of the same assignment pair.
func IsDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDuplicateEntry
	}
	return false
}
