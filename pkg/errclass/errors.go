package errclass

import "fmt"

// Error is a stable, machine-readable error class.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithMessage returns a new Error with the same Code but a specific message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// All stable error classes.
var (
	ErrNameInvalid          = &Error{Code: "E_NAME_INVALID"}
	ErrPathEscape           = &Error{Code: "E_PATH_ESCAPE"}
	ErrRequiredFieldMissing = &Error{Code: "E_REQUIRED_FIELD_MISSING"}
	ErrIntegrityMismatch    = &Error{Code: "E_INTEGRITY_MISMATCH"}
	ErrUnsupportedPattern   = &Error{Code: "E_UNSUPPORTED_PATTERN"}
	ErrIOFailure            = &Error{Code: "E_IO_FAILURE"}
	ErrFormatUnsupported    = &Error{Code: "E_FORMAT_UNSUPPORTED"}
	ErrSessionClosed        = &Error{Code: "E_SESSION_CLOSED"}
)

// RequiredFieldError reports a field that was still unset after every
// override had been applied.
type RequiredFieldError struct {
	Field     string
	Operation string
}

// RequiredField builds a RequiredFieldError.
func RequiredField(field, operation string) *RequiredFieldError {
	return &RequiredFieldError{Field: field, Operation: operation}
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("%s: %s requires field %q", ErrRequiredFieldMissing.Code, e.Operation, e.Field)
}

func (e *RequiredFieldError) Is(target error) bool {
	return ErrRequiredFieldMissing.Is(target)
}

// HashMismatchError is returned when a file's content hash differs from the
// hash the catalog vouches for.
type HashMismatchError struct {
	Path       string
	Verified   string
	Calculated string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("%s: verified hash %s does not match calculated hash %s for %s",
		ErrIntegrityMismatch.Code, e.Verified, e.Calculated, e.Path)
}

func (e *HashMismatchError) Is(target error) bool {
	return ErrIntegrityMismatch.Is(target)
}

// IOError wraps an underlying read, write or parse failure.
type IOError struct {
	Op  string
	Err error
}

// IO wraps err as an I/O failure of op. It returns nil when err is nil.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Err: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrIOFailure.Code, e.Op, e.Err)
}

func (e *IOError) Is(target error) bool {
	return ErrIOFailure.Is(target)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
