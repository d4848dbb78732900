package manager

import (
	"fmt"
	"io"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tsawler/lazypdf/document"
	"github.com/tsawler/lazypdf/internal/logger"
	"github.com/tsawler/lazypdf/internal/metrics"
)

// session holds what both variants share: identity, password, the lazily
// validated base URL and the document.
type session struct {
	docID   string
	variant string
	opts    document.EvaluatorOptions
	doc     *document.Document
	log     *logger.Logger

	pwMu     sync.RWMutex
	password []byte

	rawBaseURL  string
	baseURLOnce sync.Once
	baseURL     *url.URL

	terminated atomic.Bool
}

func newSession(cfg Config, variant string, src io.ReaderAt, length int64) *session {
	docID := cfg.DocID
	if docID == "" {
		docID = uuid.NewString()
	}
	log := logger.OrNop(cfg.Logger).WithComponent("manager").WithDocument(docID)

	return &session{
		docID:      docID,
		variant:    variant,
		opts:       cfg.EvaluatorOptions,
		doc:        document.New(src, length, cfg.EvaluatorOptions, document.WithLogger(log)),
		log:        log,
		password:   clone(cfg.Password),
		rawBaseURL: cfg.DocBaseURL,
	}
}

func (s *session) DocID() string {
	return s.docID
}

func (s *session) Password() []byte {
	s.pwMu.RLock()
	defer s.pwMu.RUnlock()
	return clone(s.password)
}

func (s *session) UpdatePassword(password []byte) {
	s.pwMu.Lock()
	s.password = clone(password)
	s.pwMu.Unlock()
}

func (s *session) EvaluatorOptions() document.EvaluatorOptions {
	return s.opts
}

func (s *session) Document() *document.Document {
	return s.doc
}

func (s *session) Cleanup() {
	s.doc.Cleanup()
}

// DocBaseURL returns the validated base URL, or nil if none was configured
// or it was invalid. Validation happens once.
func (s *session) DocBaseURL() *url.URL {
	s.baseURLOnce.Do(func() {
		if s.rawBaseURL == "" {
			return
		}
		u, err := parseBaseURL(s.rawBaseURL)
		if err != nil {
			s.log.Warn().Err(err).Str("doc_base_url", s.rawBaseURL).Msg("Invalid document base URL ignored")
			return
		}
		s.baseURL = u
	})
	return s.baseURL
}

func (s *session) call(attempt int, password []byte) Call {
	return Call{Document: s.doc, Password: password, Attempt: attempt}
}

func (s *session) record(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.Operations.WithLabelValues(s.variant, outcome).Inc()
}

var baseURLSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"file":  true,
}

// parseBaseURL accepts absolute URLs with a known scheme. Network schemes
// need a host.
func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("not an absolute URL: %q", raw)
	}
	if !baseURLSchemes[u.Scheme] {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Scheme != "file" && u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}
	return u, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
