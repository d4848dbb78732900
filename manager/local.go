package manager

import (
	"bytes"
	"context"

	"github.com/tsawler/lazypdf/document"
)

// LocalManager serves a document held entirely in memory. Reads never
// fault, so every operation runs once.
type LocalManager struct {
	*session
	data []byte
}

var _ Manager = (*LocalManager)(nil)

// NewLocal creates a manager for data
func NewLocal(data []byte, cfg Config) *LocalManager {
	return &LocalManager{
		session: newSession(cfg, "local", bytes.NewReader(data), int64(len(data))),
		data:    data,
	}
}

func (m *LocalManager) Run(ctx context.Context, op Operation) error {
	if m.terminated.Load() {
		return ErrTerminated
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := op(m.call(1, m.Password()))
	m.record(err)
	return err
}

func (m *LocalManager) Page(ctx context.Context, index int) (*document.Page, error) {
	return getPage(ctx, m, index)
}

// RequestRange returns at once; everything is resident.
func (m *LocalManager) RequestRange(context.Context, int64, int64) error {
	return nil
}

func (m *LocalManager) RequestFullStream() {}

func (m *LocalManager) SendProgressiveData(chunk []byte) error {
	m.log.Debug().Int("bytes", len(chunk)).Msg("Ignoring progressive data for local document")
	return nil
}

func (m *LocalManager) LoadedStream(context.Context) ([]byte, error) {
	return m.data, nil
}

// Terminate has nothing to release. Later operations fail with
// ErrTerminated.
func (m *LocalManager) Terminate(reason error) {
	if m.terminated.CompareAndSwap(false, true) {
		m.log.Debug().Err(reason).Msg("Local manager terminated")
	}
}
