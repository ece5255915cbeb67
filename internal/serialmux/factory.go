package serialmux

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultReadTimeout bounds each blocking read on a real port. Timed-out
// zero-byte reads are treated as "no data yet" by the framer, so this also
// sets the cadence at which the monitor goroutine can observe shutdown.
const DefaultReadTimeout = 1000 * time.Millisecond

// OpenPort opens the serial device at path with the given options and
// applies the read timeout (DefaultReadTimeout when zero or negative).
func OpenPort(path string, opts PortOptions, timeout time.Duration) (serial.Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return port, nil
}

// NewRealMux creates a Mux instance backed by a real serial port at the
// given path using the provided options.
func NewRealMux(path string, opts PortOptions, timeout time.Duration) (*Mux[serial.Port], error) {
	port, err := OpenPort(path, opts, timeout)
	if err != nil {
		return nil, err
	}
	return NewMux[serial.Port](port), nil
}
