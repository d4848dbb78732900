package chunked

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tsawler/lazypdf/internal/logger"
	"github.com/tsawler/lazypdf/internal/metrics"
)

// DefaultAutoFetchBatch is the number of chunks requested per background
// auto-fetch round.
const DefaultAutoFetchBatch = 16

// RangeFetcher retrieves the bytes [begin, end) of a remote document.
type RangeFetcher interface {
	FetchRange(ctx context.Context, begin, end int64) ([]byte, error)
}

// RangeFetcherFunc adapts a function to RangeFetcher
type RangeFetcherFunc func(ctx context.Context, begin, end int64) ([]byte, error)

func (f RangeFetcherFunc) FetchRange(ctx context.Context, begin, end int64) ([]byte, error) {
	return f(ctx, begin, end)
}

// ManagerOptions configures a Manager
type ManagerOptions struct {
	// DisableAutoFetch stops the manager from fetching the rest of the
	// document in the background after a demand request.
	DisableAutoFetch bool

	// AutoFetchBatch is the number of chunks per background request.
	AutoFetchBatch int

	Logger *logger.Logger
}

// fetch is one in-flight range request shared by every waiter on its chunks
type fetch struct {
	first, last uint
	begin, end  int64
	done        chan struct{}
	err         error
}

// Manager makes ranges of a Stream resident through a RangeFetcher.
type Manager struct {
	stream  *Stream
	fetcher RangeFetcher
	opts    ManagerOptions
	log     *logger.Logger

	// ctx lives as long as the manager and is canceled by Abort
	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	inflight     map[uint]*fetch
	abortErr     error
	autoFetching bool

	loaded     chan struct{}
	loadedOnce sync.Once

	wg sync.WaitGroup
}

// NewManager creates a manager for stream
func NewManager(stream *Stream, fetcher RangeFetcher, opts ManagerOptions) *Manager {
	if opts.AutoFetchBatch <= 0 {
		opts.AutoFetchBatch = DefaultAutoFetchBatch
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		stream:   stream,
		fetcher:  fetcher,
		opts:     opts,
		log:      logger.OrNop(opts.Logger).WithComponent("chunked"),
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[uint]*fetch),
		loaded:   make(chan struct{}),
	}
	m.checkLoaded()
	return m
}

// Stream returns the underlying stream
func (m *Manager) Stream() *Stream {
	return m.stream
}

// RequestRange blocks until [begin, end) is resident, a fetch fails, ctx is
// done or the manager is aborted.
func (m *Manager) RequestRange(ctx context.Context, begin, end int64) error {
	if begin < 0 || end > m.stream.Length() || begin > end {
		return fmt.Errorf("invalid range [%d, %d) for stream of length %d", begin, end, m.stream.Length())
	}
	if err := m.abortError(); err != nil {
		return err
	}
	if m.stream.HasRange(begin, end) {
		return nil
	}

	first, last := m.stream.ChunksFor(begin, end)
	if err := m.requestChunks(ctx, first, last); err != nil {
		return err
	}

	m.startAutoFetch()
	return nil
}

// RequestAll blocks until every chunk is resident.
func (m *Manager) RequestAll(ctx context.Context) error {
	if err := m.abortError(); err != nil {
		return err
	}
	return m.requestChunks(ctx, 0, m.stream.NumChunks())
}

// FetchAll fetches every missing chunk in the background. Failures are
// logged; callers interested in completion use Loaded.
func (m *Manager) FetchAll() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.RequestAll(m.ctx); err != nil && !errors.Is(err, ErrAborted) {
			m.log.Warn().Err(err).Msg("Background fetch of whole document failed")
		}
	}()
}

// requestChunks starts fetches for the missing, not yet requested chunks of
// [first, last) and waits for every fetch covering the interval.
func (m *Manager) requestChunks(ctx context.Context, first, last uint) error {
	m.mu.Lock()
	if m.abortErr != nil {
		err := m.abortErr
		m.mu.Unlock()
		return err
	}

	var waits []*fetch
	seen := make(map[*fetch]bool)
	runStart, inRun := uint(0), false

	flush := func(runEnd uint) {
		if inRun {
			waits = append(waits, m.startFetchLocked(runStart, runEnd))
			inRun = false
		}
	}

	for c := first; c < last; c++ {
		if m.stream.HasChunk(c) {
			flush(c)
			continue
		}
		if f, ok := m.inflight[c]; ok {
			flush(c)
			if !seen[f] {
				seen[f] = true
				waits = append(waits, f)
			}
			continue
		}
		if !inRun {
			runStart, inRun = c, true
		}
	}
	flush(last)
	m.mu.Unlock()

	for _, f := range waits {
		select {
		case <-f.done:
			if f.err != nil {
				return f.err
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-m.ctx.Done():
			return m.abortError()
		}
	}

	return nil
}

// startFetchLocked must be called with m.mu held
func (m *Manager) startFetchLocked(first, last uint) *fetch {
	begin, end := m.stream.ChunkBounds(first, last)
	f := &fetch{
		first: first,
		last:  last,
		begin: begin,
		end:   end,
		done:  make(chan struct{}),
	}
	for c := first; c < last; c++ {
		m.inflight[c] = f
	}

	m.log.Debug().
		Int64("begin", begin).
		Int64("end", end).
		Msg("Requesting range")

	m.wg.Add(1)
	go m.runFetch(f)
	return f
}

func (m *Manager) runFetch(f *fetch) {
	defer m.wg.Done()

	metrics.RangeRequests.Inc()
	data, err := m.fetcher.FetchRange(m.ctx, f.begin, f.end)
	if err == nil && int64(len(data)) != f.end-f.begin {
		err = fmt.Errorf("%w: range [%d, %d) returned %d bytes", ErrShortRead, f.begin, f.end, len(data))
	}
	if err == nil {
		err = m.stream.OnReceiveData(f.begin, data)
	}

	if err != nil {
		metrics.RangeFailures.Inc()
		if m.ctx.Err() != nil {
			err = m.abortError()
		} else {
			err = fmt.Errorf("fetching range [%d, %d): %w", f.begin, f.end, err)
		}
	} else {
		metrics.RangeBytes.Add(float64(len(data)))
	}

	m.mu.Lock()
	for c := f.first; c < f.last; c++ {
		if m.inflight[c] == f {
			delete(m.inflight, c)
		}
	}
	f.err = err
	m.mu.Unlock()
	close(f.done)

	m.checkLoaded()
}

// OnReceiveProgressiveData stores bytes delivered by a streaming transport.
func (m *Manager) OnReceiveProgressiveData(data []byte) error {
	if err := m.abortError(); err != nil {
		return err
	}
	if _, err := m.stream.OnReceiveProgressiveData(data); err != nil {
		return err
	}
	metrics.ProgressiveBytes.Add(float64(len(data)))
	m.checkLoaded()
	return nil
}

// startAutoFetch launches the background fetcher unless it is disabled or
// already running.
func (m *Manager) startAutoFetch() {
	if m.opts.DisableAutoFetch {
		return
	}

	m.mu.Lock()
	if m.autoFetching || m.abortErr != nil || m.stream.IsComplete() {
		m.mu.Unlock()
		return
	}
	m.autoFetching = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.autoFetch()
}

func (m *Manager) autoFetch() {
	defer m.wg.Done()
	defer func() {
		m.mu.Lock()
		m.autoFetching = false
		m.mu.Unlock()
	}()

	batch := uint(m.opts.AutoFetchBatch)
	next := uint(0)
	for {
		c, ok := m.stream.NextMissingChunk(next)
		if !ok {
			return
		}

		last := c + batch
		if last > m.stream.NumChunks() {
			last = m.stream.NumChunks()
		}

		if err := m.requestChunks(m.ctx, c, last); err != nil {
			if !errors.Is(err, ErrAborted) {
				m.log.Warn().Err(err).Msg("Auto-fetch stopped")
			}
			return
		}
		next = last
	}
}

// Abort fails every pending and future request with an error wrapping both
// ErrAborted and reason. Only the first call has an effect.
func (m *Manager) Abort(reason error) {
	m.mu.Lock()
	if m.abortErr != nil {
		m.mu.Unlock()
		return
	}
	if reason == nil {
		m.abortErr = ErrAborted
	} else {
		m.abortErr = fmt.Errorf("%w: %w", ErrAborted, reason)
	}
	m.mu.Unlock()

	m.cancel()
	m.log.Debug().Err(reason).Msg("Range source aborted")
}

// Wait blocks until every fetch goroutine started by the manager returns.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) abortError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.abortErr
}

func (m *Manager) checkLoaded() {
	if m.stream.IsComplete() {
		m.loadedOnce.Do(func() { close(m.loaded) })
	}
}

// Loaded blocks until the whole stream is resident and returns its bytes.
func (m *Manager) Loaded(ctx context.Context) ([]byte, error) {
	select {
	case <-m.loaded:
		return m.stream.Bytes(), nil
	default:
	}

	select {
	case <-m.loaded:
		return m.stream.Bytes(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.ctx.Done():
		return nil, m.abortError()
	}
}
