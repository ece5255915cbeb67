// Package nmea turns the raw byte stream of a GPS receiver into framed
// fix-cycle messages and structured per-sentence field sets.
//
// The receiver emits one batch of NMEA sentences per position update. Each
// batch opens with a GNGGA sentence and closes with a GPTXT sentence; the
// Framer uses those two sentence types purely as cycle boundaries.
package nmea

import (
	"bytes"
	"io"
	"strings"
)

const (
	// StartSentinel marks the first sentence of a fix cycle.
	StartSentinel = "$GNGGA"
	// EndSentinel marks the last sentence the receiver emits per cycle.
	// Receivers that omit or reorder GPTXT will never complete a cycle.
	EndSentinel = "$GPTXT"
)

// readChunkSize is the transport read granularity.
const readChunkSize = 1024

// frameState tracks whether the Framer is inside a fix cycle. The explicit
// state makes reset-on-new-start a transition rather than a side effect.
type frameState int

const (
	stateIdle frameState = iota
	stateCollecting
)

// Framer accumulates serial bytes and emits one complete fix-cycle message
// at a time. The accumulator carries partial lines across ReadMessage calls,
// so a Framer must stay paired with its byte source for the lifetime of the
// stream. Not safe for concurrent use.
type Framer struct {
	acc     []byte
	chunk   []byte
	state   frameState
	message []byte
}

// NewFramer returns a Framer with an empty accumulator.
func NewFramer() *Framer {
	return &Framer{chunk: make([]byte, readChunkSize)}
}

// ReadMessage blocks until one complete fix cycle has been read from r and
// returns its raw sentence lines, newlines included, in arrival order.
//
// Zero-byte reads (the port's read timeout expiring with no data) are not
// errors; the loop simply retries, so the only exits are a completed message
// or a read error. Read errors are returned as-is with the accumulator
// preserved; any partially collected cycle is discarded, and the next call
// starts collecting again at the next start sentinel. Cancellation is the
// caller's concern, applied between calls.
func (f *Framer) ReadMessage(r io.Reader) ([]byte, error) {
	f.state = stateIdle
	f.message = f.message[:0]

	// Complete lines may already be buffered from the previous call's read.
	if msg, ok := f.scan(); ok {
		return msg, nil
	}

	for {
		n, err := r.Read(f.chunk)
		if n > 0 {
			f.acc = append(f.acc, f.chunk[:n]...)
			if msg, ok := f.scan(); ok {
				return msg, nil
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// scan consumes complete lines from the accumulator, advancing the
// collection state, until no newline remains or a cycle completes.
func (f *Framer) scan() ([]byte, bool) {
	for {
		idx := bytes.IndexByte(f.acc, '\n')
		if idx == -1 {
			return nil, false
		}
		line := f.acc[:idx+1]
		sentence := decodeLossy(line)

		if strings.HasPrefix(sentence, StartSentinel) {
			// A new cycle always starts fresh, even when the previous
			// one never reached its end sentinel.
			f.message = f.message[:0]
			f.state = stateCollecting
		}

		if f.state == stateCollecting {
			f.message = append(f.message, line...)

			if strings.HasPrefix(sentence, EndSentinel) {
				f.acc = f.acc[idx+1:]
				f.state = stateIdle
				msg := make([]byte, len(f.message))
				copy(msg, f.message)
				f.message = f.message[:0]
				return msg, true
			}
		}

		// Lines outside a cycle are consumed and dropped.
		f.acc = f.acc[idx+1:]
	}
}
