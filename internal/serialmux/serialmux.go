// Package serialmux provides an abstraction over the GPS serial port with
// the ability for multiple clients to subscribe to framed fix-cycle
// messages and send commands to a single receiver.
package serialmux

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/gps.report/internal/nmea"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// Mux reads fix-cycle messages from a single serial port and fans them out
// to any number of subscribers.
type Mux[T SerialPorter] struct {
	port         T
	subscribers  map[string]chan string
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// MuxInterface defines the interface for the Mux type.
type MuxInterface interface {
	// Subscribe creates a new channel for receiving complete fix-cycle
	// messages from the receiver. The channel ID identifies the unique
	// channel when unsubscribing.
	Subscribe() (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided command sentence to the receiver.
	SendCommand(string) error
	// Monitor frames fix cycles from the serial port and sends them to
	// subscribers until the context is cancelled or the transport fails.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the serial port.
	Close() error
}

// NewMux creates a Mux instance backed by the given serial port.
func NewMux[T SerialPorter](port T) *Mux[T] {
	return &Mux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

func (m *Mux[T]) Subscribe() (string, chan string) {
	id := uuid.NewString()
	ch := make(chan string)
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	m.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber from the mux.
func (m *Mux[T]) Unsubscribe(id string) {
	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	if ch, ok := m.subscribers[id]; ok {
		close(ch)
		delete(m.subscribers, id)
	}
}

// SendCommand sends a command sentence to the receiver. NMEA command lines
// are CRLF-terminated on the wire.
func (m *Mux[T]) SendCommand(command string) error {
	m.commandMu.Lock()
	defer m.commandMu.Unlock()
	if !strings.HasSuffix(command, "\r\n") {
		command = strings.TrimRight(command, "\r\n") + "\r\n"
	}
	n, err := m.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor frames complete fix cycles from the serial port and sends them to
// subscribers. It returns on context cancellation or a transport error.
func (m *Mux[T]) Monitor(ctx context.Context) error {
	framer := nmea.NewFramer()

	msgChan := make(chan string)
	readErrChan := make(chan error, 1)

	// The framer's blocking read loop runs in its own goroutine so the
	// outer loop can await messages and context cancellation together.
	go func() {
		defer close(msgChan)
		for {
			msg, err := framer.ReadMessage(m.port)
			if err != nil {
				select {
				case readErrChan <- err:
				case <-ctx.Done():
				}
				return
			}
			select {
			case msgChan <- string(msg):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-readErrChan:
			return err

		case msg, ok := <-msgChan:
			if !ok {
				return nil
			}
			m.closingMu.Lock()
			if m.closing {
				m.closingMu.Unlock()
				return nil
			}
			m.closingMu.Unlock()

			m.subscriberMu.Lock()
			for _, ch := range m.subscribers {
				select {
				case ch <- msg:
				default:
					// skip a slow subscriber rather than stall the fanout
				}
			}
			m.subscriberMu.Unlock()
		}
	}
}

func (m *Mux[T]) Close() error {
	m.closingMu.Lock()
	m.closing = true
	m.closingMu.Unlock()

	m.subscriberMu.Lock()
	defer m.subscriberMu.Unlock()
	for id, ch := range m.subscribers {
		close(ch)
		delete(m.subscribers, id)
	}
	return m.port.Close()
}
