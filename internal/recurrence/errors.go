package recurrence

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed rule or chore window. It is returned
// before any expansion happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrAnomaly marks data-integrity problems found while expanding a stored
// chore. Callers treat the chore as having no occurrences.
var ErrAnomaly = errors.New("recurrence anomaly")

var (
	ErrUnrecognizedType = fmt.Errorf("%w: unrecognized recurrence type", ErrAnomaly)
	ErrOccurrenceLimit  = fmt.Errorf("%w: occurrence limit exceeded", ErrAnomaly)
	ErrDamagedBounds    = fmt.Errorf("%w: damaged chore dates", ErrAnomaly)
)

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
