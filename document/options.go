package document

import "github.com/tsawler/lazypdf/internal/logger"

// DefaultObjectCacheSize bounds the parsed-object cache when
// EvaluatorOptions leaves it at zero.
const DefaultObjectCacheSize = 1024

// EvaluatorOptions configure how tolerant the document is and how much it
// caches. The access manager hands them over untouched.
type EvaluatorOptions struct {
	// IgnoreErrors skips broken page tree nodes and unreadable info entries
	// instead of failing the whole operation.
	IgnoreErrors bool

	// ObjectCacheSize is the number of parsed objects kept in memory
	ObjectCacheSize int
}

// DefaultEvaluatorOptions returns the options used when none are given
func DefaultEvaluatorOptions() EvaluatorOptions {
	return EvaluatorOptions{
		ObjectCacheSize: DefaultObjectCacheSize,
	}
}

// Option configures a Document
type Option func(*Document)

// WithLogger sets the logger used for recoverable problems
func WithLogger(l *logger.Logger) Option {
	return func(d *Document) {
		d.log = logger.OrNop(l).WithComponent("document")
	}
}
