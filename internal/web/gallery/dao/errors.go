package dao

import (
	"fmt"

	"github.com/Laisky/errors/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrStoreUnavailable reports a transient catalog store failure, the
// backend was unreachable or the call timed out. Retrying later may
// succeed, unlike the data errors ErrNotFound and ErrInvalidCursor.
var ErrStoreUnavailable = errors.New("catalog store unavailable")

// storeErr wraps a Firestore failure with context. Transient failures
// additionally match ErrStoreUnavailable through the error chain so
// callers can tell infrastructure trouble apart from data errors.
// Classification inspects err before wrapping, status.Code does not
// see through wrapped chains.
func storeErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if isTransient(err) {
		return &unavailableError{msg: msg, cause: err}
	}

	return errors.Wrap(err, msg)
}

func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// unavailableError keeps both ErrStoreUnavailable and the raw cause
// reachable through errors.Is/As.
type unavailableError struct {
	msg   string
	cause error
}

func (e *unavailableError) Error() string {
	return e.msg + ": " + e.cause.Error()
}

func (e *unavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func (e *unavailableError) Unwrap() error {
	return e.cause
}
