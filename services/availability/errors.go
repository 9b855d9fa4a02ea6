package availability

import "fmt"

// InputError reports malformed caller input, such as an unknown IANA zone name
// or a non-positive slot duration. It is rejected immediately, never coerced.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewInputError(field, message string) error {
	return &InputError{Field: field, Message: message}
}
