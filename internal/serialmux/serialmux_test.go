package serialmux

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

const testCycle = "$GNGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\n" +
	"$GPTXT,01,01,01,ANTENNA OPEN*25\n"

func TestNewMux(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewMux[*TestableSerialPort](port)

	if mux == nil {
		t.Fatal("NewMux returned nil")
	}
	if mux.port != port {
		t.Error("Mux port not set correctly")
	}
	if mux.subscribers == nil {
		t.Error("Mux subscribers map not initialized")
	}
}

func TestMux_SubscribeUnsubscribe(t *testing.T) {
	mux := NewMux(NewTestableSerialPort())

	id1, ch1 := mux.Subscribe()
	id2, ch2 := mux.Subscribe()

	if id1 == "" || id2 == "" {
		t.Error("subscription returned empty ID")
	}
	if id1 == id2 {
		t.Error("subscription IDs should be unique")
	}
	if ch1 == nil || ch2 == nil {
		t.Error("subscription returned nil channel")
	}

	mux.Unsubscribe(id1)
	select {
	case _, ok := <-ch1:
		if ok {
			t.Error("expected channel to be closed after Unsubscribe")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after Unsubscribe")
	}

	// Unsubscribing an unknown ID is a no-op.
	mux.Unsubscribe("not-a-subscriber")
}

func TestMux_MonitorDeliversFixCycles(t *testing.T) {
	port := NewTestableSerialPort()
	// Split the cycle across reads with a timeout in between; the framer
	// must still deliver one complete message.
	port.QueueRead([]byte(testCycle[:20]))
	port.QueueTimeout()
	port.QueueRead([]byte(testCycle[20:]))

	mux := NewMux(port)
	_, ch := mux.Subscribe()

	got := make(chan string, 1)
	go func() {
		got <- <-ch
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// The scripted port returns io.EOF once drained, ending Monitor.
	if err := mux.Monitor(ctx); err != nil && err != io.EOF {
		t.Fatalf("Monitor returned %v, want io.EOF or nil", err)
	}

	select {
	case msg := <-got:
		if msg != testCycle {
			t.Errorf("delivered message = %q, want %q", msg, testCycle)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the fix-cycle message")
	}
}

func TestMux_MonitorReturnsOnCancel(t *testing.T) {
	mux := NewMux(NewTestableSerialPort())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Depending on which select branch wins, Monitor observes the
	// cancelled context, the drained port, or the closed message channel.
	err := mux.Monitor(ctx)
	if err != nil && err != context.Canceled && err != io.EOF {
		t.Errorf("Monitor returned %v, want context.Canceled, io.EOF, or nil", err)
	}
}

func TestMux_MonitorSurfacesReadError(t *testing.T) {
	port := NewTestableSerialPort()
	port.ReadError = errors.New("device unplugged")

	mux := NewMux(port)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := mux.Monitor(ctx); !errors.Is(err, port.ReadError) {
		t.Errorf("Monitor returned %v, want %v", err, port.ReadError)
	}
}

func TestMux_SendCommand(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewMux(port)

	if err := mux.SendCommand("$PCAS02,1000*2E"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got := string(port.WrittenData()); got != "$PCAS02,1000*2E\r\n" {
		t.Errorf("written command = %q, want CRLF-terminated sentence", got)
	}
}

func TestMux_SendCommandKeepsExistingTerminator(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewMux(port)

	if err := mux.SendCommand("$PCAS02,1000*2E\r\n"); err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}
	if got := string(port.WrittenData()); strings.Count(got, "\r\n") != 1 {
		t.Errorf("written command %q should end with exactly one CRLF", got)
	}
}

func TestMux_SendCommandWriteError(t *testing.T) {
	port := NewTestableSerialPort()
	port.WriteError = errors.New("write failed")
	mux := NewMux(port)

	if err := mux.SendCommand("$PCAS02,1000*2E"); err == nil {
		t.Error("expected error from SendCommand on write failure")
	}
}

func TestMux_Close(t *testing.T) {
	port := NewTestableSerialPort()
	mux := NewMux(port)

	_, ch := mux.Subscribe()

	if err := mux.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !port.Closed {
		t.Error("Close did not close the underlying port")
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected subscriber channel closed after Close")
		}
	case <-time.After(time.Second):
		t.Error("subscriber channel not closed after Close")
	}
}
