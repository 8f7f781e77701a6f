package pipeline

import (
	"errors"
	"fmt"
)

var errChainEmpty = errors.New("no engine available")

// ValidationError rejects a request before any job is created or any engine
// runs. The API maps it to a 400 with code validation_error.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation builds a *ValidationError.
func Validation(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
