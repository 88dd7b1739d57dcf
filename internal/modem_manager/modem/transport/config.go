package transport

import (
	"time"
)

const (
	DefaultPortName    = "/dev/ttyUSB5"
	DefaultBaudRate    = 115200
	DefaultReadTimeout = time.Second
)

// Config is the serial line configuration, passed explicitly to the dialer
type Config struct {
	PortName    string
	BaudRate    int
	ReadTimeout time.Duration
}

func (c *Config) setDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
}

func (c *Config) validate() error {
	if c.PortName == "" {
		return ErrNoPortName
	}
	if c.BaudRate < 0 {
		return ErrInvalidBaudRate
	}
	return nil
}
