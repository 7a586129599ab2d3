package roster

import (
	"errors"
	"fmt"
)

// ErrNotFound reports an unknown record id on update or delete.
var ErrNotFound = errors.New("record not found")

// ErrStudentNotFound reports a scanned code that matches no student.
var ErrStudentNotFound = errors.New("no student matches this code")

// AlreadyCheckedInError reports a second check-in attempt on the same
// calendar day. It carries the student's display name for the
// user-facing message.
type AlreadyCheckedInError struct {
	StudentName string
}

func (e *AlreadyCheckedInError) Error() string {
	return fmt.Sprintf("%s has already checked in today", e.StudentName)
}
