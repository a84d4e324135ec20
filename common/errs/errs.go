package errs

// ErrorKind identifies a kind of internal error.
// fully support for errors.Is and errors.As.
type ErrorKind string

const (
	// NotFound is returned when a requested item is not found.
	NotFound = ErrorKind("Not Found")

	// InvalidArgument is returned when a caller-supplied argument fails validation.
	InvalidArgument = ErrorKind("Invalid Argument")

	// Unsupported is returned when a requested option has no implementation.
	Unsupported = ErrorKind("Unsupported")

	// ConflictSetting is returned when persisted state conflicts with the current configuration.
	ConflictSetting = ErrorKind("Conflict Setting")

	// InternalError is returned on broken invariants that must abort block processing.
	InternalError = ErrorKind("Internal Error")

	// Overflow is returned when a numeric value exceeds its fixed-width representation.
	Overflow = ErrorKind("Overflow")

	// Timeout is returned when an operation exceeds its deadline.
	Timeout = ErrorKind("Timeout")

	// Closed is returned when an operation is attempted on a closed resource.
	Closed = ErrorKind("Closed")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}
