package storage

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindFormat                ErrorKind = "format"
	KindUnrecognizedIndicator ErrorKind = "unrecognized_indicator"
	KindUnsupportedFormat     ErrorKind = "unsupported_format"
	KindMissingColumn         ErrorKind = "missing_column"
	KindEmptyFile             ErrorKind = "empty_file"
	KindRowFormat             ErrorKind = "row_format"
	KindProcessing            ErrorKind = "processing"
	KindRangeViolation        ErrorKind = "range_violation"
	KindRosterLoad            ErrorKind = "roster_load"
)

var ErrSessionNotFound = errors.New("session not found")

// Error keeps the user-facing message next to a machine-readable kind.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
