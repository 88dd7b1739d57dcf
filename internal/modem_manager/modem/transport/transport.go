package transport

import (
	"io"
	"time"
)

// Transport is an established byte stream to the modem's AT port.
//
// It is the subset of serial.Port the transaction engine relies on, so an opened
// serial port satisfies it directly. Read returns (0, nil) once the read timeout
// elapses without data.
type Transport interface {
	io.ReadWriteCloser

	// ResetInputBuffer discards everything received but not yet read
	ResetInputBuffer() error
	// Drain blocks until all written bytes have left the output buffer
	Drain() error
	// SetReadTimeout bounds a single Read call
	SetReadTimeout(t time.Duration) error
}

// Dialer opens a Transport to the modem.
//
// It is only used while constructing the engine, once the Transport exists
// the Dialer is no longer needed.
type Dialer interface {
	Dial() (Transport, error)
}
