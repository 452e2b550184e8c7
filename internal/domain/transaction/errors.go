package transaction

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("transaction not found")
	// ErrOwnershipConflict is returned when a provider transaction id is already stored for another owner.
	ErrOwnershipConflict = errors.New("transaction belongs to another owner")
)

// ValidationError reports a single malformed record. Callers skip the record and continue.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
