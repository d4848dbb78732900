package manager

import (
	"errors"
	"fmt"
)

// ErrTerminated is returned by every operation run after Terminate, and by
// operations whose range fetch was cut short by it.
var ErrTerminated = errors.New("manager terminated")

// RepeatedFaultError reports an operation that asked again for bytes its
// own earlier attempt already fetched. Retrying would not make progress.
type RepeatedFaultError struct {
	Begin, End int64
	Attempt    int
}

func (e *RepeatedFaultError) Error() string {
	return fmt.Sprintf("operation faulted again on fetched range [%d, %d) at attempt %d", e.Begin, e.End, e.Attempt)
}

// AsRepeatedFault returns the RepeatedFaultError wrapped in err, if any
func AsRepeatedFault(err error) (*RepeatedFaultError, bool) {
	var rf *RepeatedFaultError
	if errors.As(err, &rf) {
		return rf, true
	}
	return nil, false
}
