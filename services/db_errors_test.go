package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestIsLockContention(t *testing.T) {
	if !IsLockContention(&mysql.MySQLError{Number: 3572}) {
		t.Fatal("NOWAIT failure should classify as lock contention")
	}
	if !IsLockContention(&mysql.MySQLError{Number: 1205}) {
		t.Fatal("lock wait timeout should classify as lock contention")
	}
	if IsLockContention(&mysql.MySQLError{Number: 1062}) {
		t.Fatal("duplicate entry is not lock contention")
	}
	if IsLockContention(errors.New("plain error")) {
		t.Fatal("non-mysql error is not lock contention")
	}
	if IsLockContention(nil) {
		t.Fatal("nil error is not lock contention")
	}
}

func TestIsDuplicateEntry(t *testing.T) {
	if !IsDuplicateEntry(&mysql.MySQLError{Number: 1062}) {
		t.Fatal("1062 should classify as duplicate entry")
	}

	wrapped := fmt.Errorf("create assignment: %w", &mysql.MySQLError{Number: 1062})
	if !IsDuplicateEntry(wrapped) {
		t.Fatal("wrapped 1062 should classify as duplicate entry")
	}

	if IsDuplicateEntry(&mysql.MySQLError{Number: 3572}) {
		t.Fatal("lock failure is not a duplicate entry")
	}
	if IsDuplicateEntry(nil) {
		t.Fatal("nil error is not a duplicate entry")
	}
}
