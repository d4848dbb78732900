package document

import (
	"io"
	"sync"

	"github.com/tsawler/lazypdf/chunked"
)

// faultRecorder wraps the document reader for the duration of one
// operation and remembers the first non-resident range it was asked for.
type faultRecorder struct {
	r io.ReaderAt

	mu    sync.Mutex
	fault *chunked.MissingDataError
}

func newFaultRecorder(r io.ReaderAt) *faultRecorder {
	return &faultRecorder{r: r}
}

func (f *faultRecorder) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.r.ReadAt(p, off)
	if err != nil {
		if missing, ok := chunked.AsMissingData(err); ok {
			f.mu.Lock()
			if f.fault == nil {
				f.fault = missing
			}
			f.mu.Unlock()
		}
	}
	return n, err
}

// result returns the recorded fault in place of err. Once a read failed,
// whatever the operation concluded was based on incomplete input.
func (f *faultRecorder) result(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fault != nil {
		return f.fault
	}
	return err
}

// isFault reports whether err is a data-not-resident fault
func isFault(err error) bool {
	_, ok := chunked.AsMissingData(err)
	return ok
}
