package extract

import (
	"errors"
	"fmt"
)

// ErrManifestNotFound is returned when no HLS manifest response was seen
// within the response timeout.
var ErrManifestNotFound = errors.New("HLS manifest not detected")

// ExpectedError is a failure the user can act on, such as a missing driver
// or a page that never requested a manifest.
type ExpectedError struct {
	Msg string
	Err error
}

func (e *ExpectedError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *ExpectedError) Unwrap() error {
	return e.Err
}

// AsExpected returns the ExpectedError in err's chain, if any.
func AsExpected(err error) (*ExpectedError, bool) {
	var ee *ExpectedError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
