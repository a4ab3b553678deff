package domain

import "errors"

// ErrorCode identifies backend failures surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup          ErrorCode = "startup"
	ErrorCodePermissionDenied ErrorCode = "permission_denied"
	ErrorCodeDeviceNotFound   ErrorCode = "device_not_found"
	ErrorCodeDeviceBusy       ErrorCode = "device_busy"
	ErrorCodeNoSource         ErrorCode = "no_source"
	ErrorCodeAccessRevoked    ErrorCode = "access_revoked"
	ErrorCodeReadFailed       ErrorCode = "read_failed"
	ErrorCodeDeleteFailed     ErrorCode = "delete_failed"
	ErrorCodePersistFailed    ErrorCode = "persist_failed"
	ErrorCodeEncoder          ErrorCode = "encoder"
	ErrorCodeUnknown          ErrorCode = "unknown"
)

// ErrCancelled marks a user-cancelled picker. Cancellation is benign and
// must never populate error state.
var ErrCancelled = errors.New("cancelled by user")

// Error carries a code alongside the underlying failure.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a code.
func NewError(code ErrorCode, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf extracts the error code from err, defaulting to unknown.
func CodeOf(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ErrorCodeUnknown
}
