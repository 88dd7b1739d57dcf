package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/transport"
	"github.com/LeoCommon/cellgw/internal/modem_manager/power"
	"github.com/LeoCommon/cellgw/pkg/usb"
)

type ModemConfig struct {
	Port             string       `toml:"port" comment:"AT command port of the modem"`
	BaudRate         int          `toml:"baudrate"`
	ReadTimeout      TOMLDuration `toml:"read_timeout,omitempty"`
	Model            string       `toml:"model,omitempty" comment:"sim7070g or sim7600, used for usb detection"`
	USBDetect        bool         `toml:"usb_detect" comment:"wait for the modem to enumerate on usb after a power toggle"`
	USBWait          TOMLDuration `toml:"usb_wait,omitempty"`
	StopModemManager bool         `toml:"stop_modem_manager" comment:"stop ModemManager.service, it grabs the AT port otherwise"`
}

func defaultModemConfig() ModemConfig {
	return ModemConfig{
		Port:        transport.DefaultPortName,
		BaudRate:    transport.DefaultBaudRate,
		ReadTimeout: TOMLDuration(transport.DefaultReadTimeout),
		Model:       "sim7070g",
		USBWait:     TOMLDuration(30 * time.Second),
	}
}

// TransportConfig is the serial configuration derived from this section
func (c ModemConfig) TransportConfig() transport.Config {
	return transport.Config{
		PortName:    c.Port,
		BaudRate:    c.BaudRate,
		ReadTimeout: c.ReadTimeout.Value(),
	}
}

type ModemConfigManager struct {
	BaseConfigManager[ModemConfig]
}

// Verify verifies the "hard" conditions that the rest of the code relies on
func (a *ModemConfigManager) Verify() error {
	if a.conf.Port == "" {
		return errors.New("no modem port configured")
	}
	if a.conf.BaudRate <= 0 {
		return fmt.Errorf("invalid baud rate %d", a.conf.BaudRate)
	}
	if a.conf.USBDetect {
		if _, ok := usb.DeviceTypeByName(a.conf.Model); !ok {
			return fmt.Errorf("usb detection enabled for unknown model %q", a.conf.Model)
		}
	}
	return nil
}

type PowerConfig struct {
	Command           []string     `toml:"command" comment:"argv pulling the PWRKEY line, empty disables power toggling"`
	ReleaseCommand    []string     `toml:"release_command,omitempty"`
	Hold              TOMLDuration `toml:"hold,omitempty"`
	BootWait          TOMLDuration `toml:"boot_wait,omitempty"`
	USBResetFallback  bool         `toml:"usb_reset_fallback"`
	HandshakeAttempts int          `toml:"handshake_attempts"`
}

func defaultPowerConfig() PowerConfig {
	return PowerConfig{
		Command:           []string{"pinctrl", "set", "4", "op", "dh"},
		ReleaseCommand:    []string{"pinctrl", "set", "4", "op", "dl"},
		Hold:              TOMLDuration(power.DefaultHold),
		BootWait:          TOMLDuration(power.DefaultBootWait),
		HandshakeAttempts: 3,
	}
}

type PowerConfigManager struct {
	BaseConfigManager[PowerConfig]
}

func (a *PowerConfigManager) Verify() error {
	if a.conf.HandshakeAttempts < 1 {
		return fmt.Errorf("handshake_attempts must be at least 1, got %d", a.conf.HandshakeAttempts)
	}
	if a.conf.Hold < 0 || a.conf.BootWait < 0 {
		return errors.New("negative power timing")
	}
	return nil
}
