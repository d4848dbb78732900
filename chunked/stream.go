package chunked

import (
	"fmt"
	"io"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// DefaultChunkSize is the chunk size used when none is given.
const DefaultChunkSize = 65536

// Stream is a fixed-length byte store that is filled chunk by chunk.
// It is safe for concurrent use.
type Stream struct {
	mu sync.RWMutex

	data      []byte
	length    int64
	chunkSize int64
	numChunks uint

	loaded    *bitset.BitSet
	numLoaded uint

	// progressiveLength is the length of the prefix delivered through
	// OnReceiveProgressiveData.
	progressiveLength int64
}

// Ensure Stream can back a document reader
var _ io.ReaderAt = (*Stream)(nil)

// NewStream creates an empty stream of the given length
func NewStream(length int64, chunkSize int) *Stream {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if length < 0 {
		length = 0
	}

	cs := int64(chunkSize)
	numChunks := uint((length + cs - 1) / cs)

	return &Stream{
		data:      make([]byte, length),
		length:    length,
		chunkSize: cs,
		numChunks: numChunks,
		loaded:    bitset.New(numChunks),
	}
}

// Length returns the total length of the stream in bytes
func (s *Stream) Length() int64 {
	return s.length
}

// ChunkSize returns the chunk size in bytes
func (s *Stream) ChunkSize() int {
	return int(s.chunkSize)
}

// NumChunks returns the number of chunks in the stream
func (s *Stream) NumChunks() uint {
	return s.numChunks
}

// NumLoadedChunks returns the number of resident chunks
func (s *Stream) NumLoadedChunks() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.numLoaded
}

// IsComplete reports whether every chunk is resident
func (s *Stream) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.numLoaded == s.numChunks
}

// HasChunk reports whether chunk i is resident
func (s *Stream) HasChunk(i uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded.Test(i)
}

// ChunksFor returns the chunk interval [first, last) covering [begin, end).
func (s *Stream) ChunksFor(begin, end int64) (first, last uint) {
	if begin < 0 {
		begin = 0
	}
	if end > s.length {
		end = s.length
	}
	if begin >= end {
		return 0, 0
	}
	return uint(begin / s.chunkSize), uint((end-1)/s.chunkSize) + 1
}

// ChunkBounds returns the byte range [begin, end) of chunks [first, last).
func (s *Stream) ChunkBounds(first, last uint) (begin, end int64) {
	begin = int64(first) * s.chunkSize
	end = int64(last) * s.chunkSize
	if end > s.length {
		end = s.length
	}
	return begin, end
}

// HasRange reports whether all bytes in [begin, end) are resident
func (s *Stream) HasRange(begin, end int64) bool {
	return s.EnsureRange(begin, end) == nil
}

// EnsureRange returns a *MissingDataError for [begin, end) if any byte of the
// range is not resident. Ranges are clipped to the stream length.
func (s *Stream) EnsureRange(begin, end int64) error {
	if end > s.length {
		end = s.length
	}
	if begin >= end {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if end <= s.progressiveLength {
		return nil
	}

	first, last := s.ChunksFor(begin, end)
	for c := first; c < last; c++ {
		if !s.loaded.Test(c) {
			return &MissingDataError{Begin: begin, End: end}
		}
	}
	return nil
}

// ReadAt reads len(p) bytes at off. It never blocks: if the bytes are not
// resident it returns a *MissingDataError for the span it was asked for.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= s.length {
		return 0, io.EOF
	}

	end := off + int64(len(p))
	if end > s.length {
		end = s.length
	}

	if err := s.EnsureRange(off, end); err != nil {
		return 0, err
	}

	s.mu.RLock()
	n := copy(p, s.data[off:end])
	s.mu.RUnlock()

	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// OnReceiveData stores a fetched range. begin must be chunk aligned; every
// chunk the data fully covers (or that ends at the stream end) becomes
// resident.
func (s *Stream) OnReceiveData(begin int64, chunk []byte) error {
	end := begin + int64(len(chunk))

	if begin%s.chunkSize != 0 {
		return fmt.Errorf("bad begin offset %d: not a multiple of chunk size %d", begin, s.chunkSize)
	}
	if begin < 0 || end > s.length {
		return fmt.Errorf("range [%d, %d) outside stream of length %d", begin, end, s.length)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.data[begin:end], chunk)

	first := uint(begin / s.chunkSize)
	var last uint
	if end == s.length {
		last = s.numChunks
	} else {
		last = uint(end / s.chunkSize)
	}
	s.markLoaded(first, last)

	return nil
}

// OnReceiveProgressiveData appends data at the end of the progressively
// delivered prefix and returns the new prefix length.
func (s *Stream) OnReceiveProgressiveData(data []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	position := s.progressiveLength
	end := position + int64(len(data))
	if end > s.length {
		return position, fmt.Errorf("progressive data overflows stream: %d > %d", end, s.length)
	}

	copy(s.data[position:end], data)
	s.progressiveLength = end

	first := uint(position / s.chunkSize)
	var last uint
	if end >= s.length {
		last = s.numChunks
	} else {
		last = uint(end / s.chunkSize)
	}
	s.markLoaded(first, last)

	return end, nil
}

// markLoaded must be called with s.mu held for writing
func (s *Stream) markLoaded(first, last uint) {
	for c := first; c < last; c++ {
		if !s.loaded.Test(c) {
			s.loaded.Set(c)
			s.numLoaded++
		}
	}
}

// ProgressiveLength returns the length of the progressively delivered prefix
func (s *Stream) ProgressiveLength() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progressiveLength
}

// NextMissingChunk returns the first missing chunk at or after from, wrapping
// around to the start of the stream.
func (s *Stream) NextMissingChunk(from uint) (uint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.numLoaded == s.numChunks {
		return 0, false
	}
	if c, ok := s.loaded.NextClear(from); ok && c < s.numChunks {
		return c, true
	}
	if c, ok := s.loaded.NextClear(0); ok && c < s.numChunks {
		return c, true
	}
	return 0, false
}

// MissingChunks returns the indexes of all chunks that are not resident
func (s *Stream) MissingChunks() []uint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	missing := make([]uint, 0, s.numChunks-s.numLoaded)
	for c := uint(0); c < s.numChunks; c++ {
		if !s.loaded.Test(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Bytes returns the backing store. Regions that are not resident are zero.
// The returned slice must not be modified.
func (s *Stream) Bytes() []byte {
	return s.data
}
