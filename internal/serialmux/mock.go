package serialmux

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// MockSerialPort implements SerialPorter for dev mode, replaying canned
// fixture bytes and discarding writes.
type MockSerialPort struct {
	io.Reader
	io.Closer
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// NewMockMux creates a Mux backed by a mock serial port that replays the
// fixture bytes twice a second, simulating a live receiver. The fixture
// should contain at least one complete fix cycle.
func NewMockMux(fixture []byte) *Mux[*MockSerialPort] {
	r, w := io.Pipe()

	mockPort := &MockSerialPort{
		Reader: r,
		Closer: r,
	}

	go func() {
		defer w.Close()
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := w.Write(fixture); err != nil {
				return
			}
		}
	}()

	return NewMux(mockPort)
}

// TestableSerialPort implements SerialPorter with scripted reads for
// exercising the mux and framer without hardware. Each queued read is
// delivered as exactly one Read result, so tests control chunk boundaries
// precisely.
type TestableSerialPort struct {
	mu sync.Mutex

	// reads is the queue of scripted read results; a nil entry simulates a
	// timed-out zero-byte read.
	reads [][]byte

	// ReadError is returned once the read queue drains. When nil, a
	// drained queue returns io.EOF.
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// ReadCalls records the number of Read calls
	ReadCalls int

	// ReadTimeout is the current read timeout
	ReadTimeout time.Duration

	writeBuf bytes.Buffer
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	return &TestableSerialPort{}
}

// QueueRead schedules data to be returned by one subsequent Read call.
func (t *TestableSerialPort) QueueRead(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads = append(t.reads, append([]byte(nil), data...))
}

// QueueTimeout schedules one zero-byte read, as a real port produces when
// its read timeout expires with no data.
func (t *TestableSerialPort) QueueTimeout() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads = append(t.reads, nil)
}

// Read pops the next scripted result. A chunk larger than p is delivered
// across consecutive calls.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, io.EOF
	}
	if len(t.reads) == 0 {
		if t.ReadError != nil {
			return 0, t.ReadError
		}
		return 0, io.EOF
	}

	chunk := t.reads[0]
	if chunk == nil {
		t.reads = t.reads[1:]
		return 0, nil
	}

	n = copy(p, chunk)
	if n < len(chunk) {
		t.reads[0] = chunk[n:]
	} else {
		t.reads = t.reads[1:]
	}
	return n, nil
}

// Write captures data written to the port.
func (t *TestableSerialPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	return t.writeBuf.Write(p)
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	return t.CloseError
}

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// WrittenData returns all data written to the port.
func (t *TestableSerialPort) WrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.writeBuf.Bytes()...)
}
