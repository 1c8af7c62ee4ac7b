package device

import (
	"context"
	"sync"
)

// frameMirror holds the most recent encoded frame for the preview stream.
// Writers replace the frame on every tick; each HTTP client goroutine
// blocks in NextContext until a frame newer than the one it last sent
// arrives. Only the latest frame is retained, so a slow client skips
// frames instead of applying backpressure to the tick loop.
type frameMirror struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jpeg   []byte
	seq    uint64
	closed bool
}

func newFrameMirror() *frameMirror {
	m := &frameMirror{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Set replaces the mirrored frame and wakes all waiting clients. The
// caller must not modify data after handing it over.
func (m *frameMirror) Set(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.jpeg = data
	m.seq++
	m.cond.Broadcast()
}

// Latest returns the current frame without waiting. ok is false when no
// frame has been published yet or the mirror is closed.
func (m *frameMirror) Latest() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.seq == 0 {
		return nil, false
	}
	return m.jpeg, true
}

// NextContext blocks until a frame with a sequence number greater than
// afterSeq is available, then returns it with its sequence number. It
// returns ok=false when the mirror closes or ctx is done.
func (m *frameMirror) NextContext(ctx context.Context, afterSeq uint64) ([]byte, uint64, bool) {
	// Wake the cond.Wait below when the caller goes away.
	stop := context.AfterFunc(ctx, func() {
		m.mu.Lock()
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	defer stop()

	m.mu.Lock()
	defer m.mu.Unlock()
	for {
		if m.closed || ctx.Err() != nil {
			return nil, 0, false
		}
		if m.seq > afterSeq {
			return m.jpeg, m.seq, true
		}
		m.cond.Wait()
	}
}

// Close releases all waiting clients
func (m *frameMirror) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.jpeg = nil
	m.cond.Broadcast()
}
