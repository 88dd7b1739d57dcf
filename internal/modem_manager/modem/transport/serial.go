package transport

import (
	"fmt"

	"github.com/LeoCommon/cellgw/pkg/log"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// SerialDialer opens the modem's AT port through go.bug.st/serial
type SerialDialer struct {
	Config Config
}

func NewSerialDialer(conf Config) *SerialDialer {
	return &SerialDialer{Config: conf}
}

func (d *SerialDialer) Dial() (Transport, error) {
	conf := d.Config
	conf.setDefaults()
	if err := conf.validate(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: conf.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(conf.PortName, mode)
	if err != nil {
		log.Error("error while opening serial device", zap.String("port", conf.PortName), zap.Error(err))
		return nil, fmt.Errorf("open %s: %w", conf.PortName, err)
	}

	if err := port.SetReadTimeout(conf.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", conf.PortName, err)
	}

	log.Info("serial port opened", zap.String("port", conf.PortName), zap.Int("baudrate", conf.BaudRate))
	return port, nil
}

// ListPorts returns the serial devices known to the system
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

var _ Transport = serial.Port(nil)
