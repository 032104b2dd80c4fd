package model

import (
	"errors"
	"fmt"
)

type FailureCode string

const (
	CodeCapacityExceeded  FailureCode = "capacity_exceeded"
	CodeWindowClosed      FailureCode = "window_closed"
	CodeDeadlineInPast    FailureCode = "deadline_in_past"
	CodeDeadlineTooFar    FailureCode = "deadline_too_far"
	CodeAlreadyExpired    FailureCode = "already_expired"
	CodeNotFound          FailureCode = "not_found"
	CodeOverlappingPeriod FailureCode = "overlapping_period"
)

// Failure is a recoverable rule violation. The reason is written for direct
// display to the user.
type Failure struct {
	Code   FailureCode
	Reason string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Reason)
}

func NewFailure(code FailureCode, format string, args ...any) *Failure {
	return &Failure{Code: code, Reason: fmt.Sprintf(format, args...)}
}

func FailureCodeOf(err error) (FailureCode, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Code, true
	}
	return "", false
}

func IsFailure(err error, code FailureCode) bool {
	got, ok := FailureCodeOf(err)
	return ok && got == code
}
