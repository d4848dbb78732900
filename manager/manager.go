package manager

import (
	"context"
	"net/url"

	"github.com/tsawler/lazypdf/document"
	"github.com/tsawler/lazypdf/internal/logger"
)

// Manager mediates between operations on a document and the availability
// of its bytes.
type Manager interface {
	DocID() string
	Password() []byte
	DocBaseURL() *url.URL
	EvaluatorOptions() document.EvaluatorOptions
	Document() *document.Document

	// Run executes op until it completes. Only the network variant retries.
	Run(ctx context.Context, op Operation) error

	// Page returns the page at the zero-based index
	Page(ctx context.Context, index int) (*document.Page, error)

	// RequestRange makes [begin, end) resident
	RequestRange(ctx context.Context, begin, end int64) error

	// RequestFullStream starts fetching whatever is still missing and
	// returns immediately.
	RequestFullStream()

	// SendProgressiveData accepts bytes pushed by a streaming transport, in
	// file order starting at offset zero.
	SendProgressiveData(chunk []byte) error

	// UpdatePassword replaces the password for operations started later
	UpdatePassword(password []byte)

	// Cleanup drops parsed objects. Resident bytes are kept.
	Cleanup()

	// Terminate releases the range source. It is safe to call more than once.
	Terminate(reason error)

	// LoadedStream waits until the whole file is resident and returns it
	LoadedStream(ctx context.Context) ([]byte, error)
}

// Call is what one attempt of an operation receives. Password is the value
// current when Run was called and stays the same across retries.
type Call struct {
	Document *document.Document
	Password []byte
	Attempt  int
}

// Operation reads from the document. It is run again from the start after
// every fetched range, so it must not depend on state left by a failed
// attempt.
type Operation func(Call) error

// Config is the identity of a document session
type Config struct {
	// DocID identifies the session in logs. A UUID is generated when empty.
	DocID string

	Password []byte

	// DocBaseURL is the raw base URL of the document. It is validated on
	// first use; an invalid value resolves to nil.
	DocBaseURL string

	EvaluatorOptions document.EvaluatorOptions

	Logger *logger.Logger
}

// Ensure runs op through m and returns its value
func Ensure[T any](ctx context.Context, m Manager, op func(Call) (T, error)) (T, error) {
	var result T
	err := m.Run(ctx, func(c Call) error {
		v, err := op(c)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// EnsureDocument runs fn against the session document
func EnsureDocument[T any](ctx context.Context, m Manager, fn func(*document.Document) (T, error)) (T, error) {
	return Ensure(ctx, m, func(c Call) (T, error) {
		return fn(c.Document)
	})
}

// EnsureXRef runs fn against the cross-reference table. The document must
// have been parsed, see Load.
func EnsureXRef[T any](ctx context.Context, m Manager, fn func(*document.XRef) (T, error)) (T, error) {
	return Ensure(ctx, m, func(c Call) (T, error) {
		xref, err := c.Document.XRef()
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(xref)
	})
}

// EnsureCatalog runs fn against the document catalog
func EnsureCatalog[T any](ctx context.Context, m Manager, fn func(*document.Catalog) (T, error)) (T, error) {
	return Ensure(ctx, m, func(c Call) (T, error) {
		catalog, err := c.Document.Catalog()
		if err != nil {
			var zero T
			return zero, err
		}
		return fn(catalog)
	})
}

// Load runs the opening sequence: header check, startxref lookup and
// cross-reference parsing with the current password. A
// *document.PasswordError is returned as is; after UpdatePassword, Load may
// be called again.
func Load(ctx context.Context, m Manager) error {
	return m.Run(ctx, func(c Call) error {
		doc := c.Document
		if err := doc.CheckHeader(); err != nil {
			return err
		}
		if err := doc.ParseStartXRef(); err != nil {
			return err
		}
		return doc.Parse(c.Password)
	})
}

func getPage(ctx context.Context, m Manager, index int) (*document.Page, error) {
	return EnsureCatalog(ctx, m, func(c *document.Catalog) (*document.Page, error) {
		return c.Page(index)
	})
}
