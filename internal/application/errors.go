package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrInvalidParameter is returned for structurally invalid arguments such
	// as an unknown export format or a non-positive rotation length.
	ErrInvalidParameter = errors.New("application: invalid parameter")
	// ErrConflict is returned when an operation is blocked by existing state,
	// for example deleting a person who still holds assignments.
	ErrConflict = errors.New("application: conflict")
	// ErrBusy is returned when the per-schedule lock cannot be acquired
	// within the configured timeout. Callers may retry.
	ErrBusy = errors.New("application: busy")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
