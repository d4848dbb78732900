package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tsawler/lazypdf/chunked"
	"github.com/tsawler/lazypdf/document"
	"github.com/tsawler/lazypdf/internal/metrics"
	"github.com/tsawler/lazypdf/transport"
)

// RangeSource makes byte ranges of the document resident. *chunked.Manager
// is the implementation; it deduplicates overlapping requests.
type RangeSource interface {
	RequestRange(ctx context.Context, begin, end int64) error
	FetchAll()
	OnReceiveProgressiveData(data []byte) error
	Loaded(ctx context.Context) ([]byte, error)
	Abort(reason error)
}

// NetworkConfig configures a NetworkManager
type NetworkConfig struct {
	Config

	// URL of the document. Used when Fetcher is nil or Length is unknown.
	URL string

	// Length is the file size. Zero means probe the server for it.
	Length int64

	DisableAutoFetch bool

	// RangeChunkSize is the granularity of residency tracking and fetches
	RangeChunkSize int

	// Fetcher overrides the HTTP client built from URL and ClientOptions
	Fetcher chunked.RangeFetcher

	ClientOptions transport.ClientOptions
}

// NetworkManager serves a document fetched range by range
type NetworkManager struct {
	*session
	source RangeSource
	stream *chunked.Stream

	// ctx ends on Terminate; background transfers for the session use it
	ctx    context.Context
	cancel context.CancelCauseFunc

	terminateOnce sync.Once
}

var _ Manager = (*NetworkManager)(nil)

// NewNetwork creates a manager reading cfg.URL (or cfg.Fetcher) through a
// chunked stream. The server is probed only when Length is unknown.
func NewNetwork(ctx context.Context, cfg NetworkConfig) (*NetworkManager, error) {
	fetcher := cfg.Fetcher
	length := cfg.Length

	if fetcher == nil || length <= 0 {
		if cfg.ClientOptions.Logger == nil {
			cfg.ClientOptions.Logger = cfg.Logger
		}
		client, err := transport.NewClient(cfg.URL, cfg.ClientOptions)
		if err != nil {
			return nil, err
		}
		if fetcher == nil {
			fetcher = client
		}
		if length <= 0 {
			info, err := client.Probe(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to determine document length: %w", err)
			}
			if info.Length <= 0 {
				return nil, transport.ErrUnknownLength
			}
			length = info.Length
		}
	}

	chunkSize := cfg.RangeChunkSize
	if chunkSize <= 0 {
		chunkSize = chunked.DefaultChunkSize
	}

	stream := chunked.NewStream(length, chunkSize)
	source := chunked.NewManager(stream, fetcher, chunked.ManagerOptions{
		DisableAutoFetch: cfg.DisableAutoFetch,
		Logger:           cfg.Logger,
	})

	m := newNetwork(cfg.Config, source, stream, length)
	m.log.Debug().
		Str("url", cfg.URL).
		Int64("length", length).
		Int("chunk_size", chunkSize).
		Msg("Network manager created")
	return m, nil
}

func newNetwork(cfg Config, source RangeSource, r io.ReaderAt, length int64) *NetworkManager {
	ctx, cancel := context.WithCancelCause(context.Background())
	m := &NetworkManager{
		session: newSession(cfg, "network", r, length),
		source:  source,
		ctx:     ctx,
		cancel:  cancel,
	}
	if stream, ok := r.(*chunked.Stream); ok {
		m.stream = stream
	}
	return m
}

// Stream returns the chunked stream backing the document
func (m *NetworkManager) Stream() *chunked.Stream {
	return m.stream
}

// Context returns a context that is canceled, with ErrTerminated as its
// cause, when the manager is terminated. Transfers feeding the manager from
// outside, such as a progressive download, should run under it.
func (m *NetworkManager) Context() context.Context {
	return m.ctx
}

// attemptState is the outcome of one attempt of an operation
type attemptState int

const (
	stateReady attemptState = iota
	stateNeedsRange
	stateFailed
)

func classify(err error) (attemptState, *chunked.MissingDataError) {
	if err == nil {
		return stateReady, nil
	}
	if missing, ok := chunked.AsMissingData(err); ok {
		return stateNeedsRange, missing
	}
	return stateFailed, nil
}

type byteRange struct {
	begin, end int64
}

func covered(ranges []byteRange, begin, end int64) bool {
	for _, r := range ranges {
		if r.begin <= begin && end <= r.end {
			return true
		}
	}
	return false
}

// Run attempts op and, for every data fault it reports, fetches exactly the
// faulting range and attempts op again. A fault on a range this call already
// fetched ends the loop with a *RepeatedFaultError.
func (m *NetworkManager) Run(ctx context.Context, op Operation) error {
	if m.terminated.Load() {
		m.record(ErrTerminated)
		return ErrTerminated
	}
	if err := ctx.Err(); err != nil {
		m.record(err)
		return err
	}

	password := m.Password()
	var fetched []byteRange

	for attempt := 1; ; attempt++ {
		if m.terminated.Load() {
			m.record(ErrTerminated)
			return ErrTerminated
		}

		err := op(m.call(attempt, password))
		state, missing := classify(err)

		switch state {
		case stateReady, stateFailed:
			m.record(err)
			return err
		}

		metrics.DataFaults.Inc()
		if covered(fetched, missing.Begin, missing.End) {
			metrics.RepeatedFaults.Inc()
			err := &RepeatedFaultError{Begin: missing.Begin, End: missing.End, Attempt: attempt}
			m.record(err)
			return err
		}

		m.log.Debug().
			Int64("begin", missing.Begin).
			Int64("end", missing.End).
			Int("attempt", attempt).
			Msg("Fetching missing range")

		if err := m.source.RequestRange(ctx, missing.Begin, missing.End); err != nil {
			if m.terminated.Load() && !errors.Is(err, ErrTerminated) {
				err = fmt.Errorf("%w: %w", ErrTerminated, err)
			}
			m.record(err)
			return err
		}
		fetched = append(fetched, byteRange{missing.Begin, missing.End})
	}
}

func (m *NetworkManager) Page(ctx context.Context, index int) (*document.Page, error) {
	return getPage(ctx, m, index)
}

func (m *NetworkManager) RequestRange(ctx context.Context, begin, end int64) error {
	return m.source.RequestRange(ctx, begin, end)
}

func (m *NetworkManager) RequestFullStream() {
	m.source.FetchAll()
}

func (m *NetworkManager) SendProgressiveData(chunk []byte) error {
	return m.source.OnReceiveProgressiveData(chunk)
}

func (m *NetworkManager) LoadedStream(ctx context.Context) ([]byte, error) {
	return m.source.Loaded(ctx)
}

// Terminate aborts the range source. Pending fetches fail at once and so
// do the operations waiting for them.
func (m *NetworkManager) Terminate(reason error) {
	m.terminateOnce.Do(func() {
		m.terminated.Store(true)

		abortErr := ErrTerminated
		if reason != nil {
			abortErr = fmt.Errorf("%w: %w", ErrTerminated, reason)
		}
		m.source.Abort(abortErr)
		m.cancel(abortErr)

		metrics.TerminatedManagers.Inc()
		m.log.Debug().Err(reason).Msg("Network manager terminated")
	})
}
