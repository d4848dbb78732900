package chunked

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted is wrapped by every error returned after Abort.
	ErrAborted = errors.New("range source aborted")

	// ErrShortRead indicates a fetcher returned fewer bytes than requested.
	ErrShortRead = errors.New("fetched range has unexpected length")
)

// MissingDataError reports that a read touched bytes that are not resident.
// Begin and End delimit the half-open range the read needed.
type MissingDataError struct {
	Begin int64
	End   int64
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing data [%d, %d)", e.Begin, e.End)
}

// AsMissingData returns the MissingDataError wrapped in err, if any.
func AsMissingData(err error) (*MissingDataError, bool) {
	var missing *MissingDataError
	if errors.As(err, &missing) {
		return missing, true
	}
	return nil, false
}
