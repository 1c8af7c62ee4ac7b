package device

import (
	"bytes"
	"context"
	"testing"
	"time"
)

// TestMirrorLatest verifies Set replaces the held frame
func TestMirrorLatest(t *testing.T) {
	m := newFrameMirror()

	if _, ok := m.Latest(); ok {
		t.Fatal("empty mirror returned a frame")
	}

	m.Set([]byte("frame-1"))
	m.Set([]byte("frame-2"))

	data, ok := m.Latest()
	if !ok {
		t.Fatal("mirror holds no frame after Set")
	}
	if !bytes.Equal(data, []byte("frame-2")) {
		t.Errorf("Latest = %q, want frame-2", data)
	}
}

// TestMirrorNextReturnsCurrent verifies a reader behind the latest frame
// gets it without blocking
func TestMirrorNextReturnsCurrent(t *testing.T) {
	m := newFrameMirror()
	m.Set([]byte("current"))

	data, seq, ok := m.NextContext(context.Background(), 0)
	if !ok {
		t.Fatal("NextContext returned not ok with a frame available")
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
	if !bytes.Equal(data, []byte("current")) {
		t.Errorf("NextContext = %q, want current", data)
	}
}

// TestMirrorNextWakes verifies a blocked reader wakes when a newer frame
// arrives
func TestMirrorNextWakes(t *testing.T) {
	m := newFrameMirror()
	m.Set([]byte("old"))

	got := make(chan []byte, 1)
	go func() {
		data, _, ok := m.NextContext(context.Background(), 1)
		if ok {
			got <- data
		}
	}()

	time.Sleep(20 * time.Millisecond)
	m.Set([]byte("new"))

	select {
	case data := <-got:
		if !bytes.Equal(data, []byte("new")) {
			t.Errorf("NextContext = %q, want new", data)
		}
	case <-time.After(time.Second):
		t.Fatal("reader did not wake after Set")
	}
}

// TestMirrorNextCancelled verifies a blocked reader is released when its
// context is cancelled
func TestMirrorNextCancelled(t *testing.T) {
	m := newFrameMirror()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, _, ok := m.NextContext(ctx, 0)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("NextContext returned ok after cancellation")
		}
	case <-time.After(time.Second):
		t.Fatal("reader did not wake after cancellation")
	}
}

// TestMirrorClose verifies Close releases waiting readers and retires the
// mirror
func TestMirrorClose(t *testing.T) {
	m := newFrameMirror()
	m.Set([]byte("frame"))

	done := make(chan bool, 1)
	go func() {
		_, _, ok := m.NextContext(context.Background(), 1)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	m.Close()

	select {
	case ok := <-done:
		if ok {
			t.Error("NextContext returned ok after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("reader did not wake after Close")
	}

	if _, ok := m.Latest(); ok {
		t.Error("closed mirror still returns a frame")
	}

	m.Set([]byte("late"))
	if _, ok := m.Latest(); ok {
		t.Error("Set revived a closed mirror")
	}
}
