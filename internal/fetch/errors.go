package fetch

import (
	"errors"
	"fmt"
)

// MalformedError marks an upstream response that could not be parsed:
// non-JSON body on a 200, or a body missing expected fields. Backoff
// treats it like a rate limit since immediate retries are equally
// wasteful.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// Malformed wraps err as a MalformedError.
func Malformed(err error) error {
	if err == nil {
		return nil
	}
	return &MalformedError{Err: err}
}

// IsMalformed reports whether err carries a MalformedError.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}
