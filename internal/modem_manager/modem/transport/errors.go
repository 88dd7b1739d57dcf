package transport

import "errors"

var (
	// ErrNoPortName is returned when the dialer has no serial device to open
	ErrNoPortName = errors.New("serial port name is required")

	// ErrInvalidBaudRate is returned for negative baud rates
	ErrInvalidBaudRate = errors.New("invalid baud rate")
)
