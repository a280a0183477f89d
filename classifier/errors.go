package classifier

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable matches any *ModelUnavailableError
var ErrModelUnavailable = errors.New("model unavailable")

// ModelUnavailableError is returned by every prediction while the model
// artifact failed to load. Cause is the load failure.
type ModelUnavailableError struct {
	Cause error
}

func (e *ModelUnavailableError) Error() string {
	if e.Cause == nil {
		return ErrModelUnavailable.Error() + ": model not loaded"
	}
	return fmt.Sprintf("%s: %v", ErrModelUnavailable, e.Cause)
}

func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Cause
}
