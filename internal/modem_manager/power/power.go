// Package power toggles the modem's supply. The SIM7070G is started and stopped
// by pulsing its PWRKEY line, with a USB port reset as fallback.
package power

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/usb"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	DefaultHold     = 2 * time.Second
	DefaultBootWait = 10 * time.Second

	// commandTimeout bounds a single press or release command
	commandTimeout = 10 * time.Second
)

var ErrNoCommand = errors.New("no power command configured")

//go:generate go run go.uber.org/mock/mockgen@v0.5.2 -destination=mock_toggler.go -package=power github.com/LeoCommon/cellgw/internal/modem_manager/power Toggler

// Toggler flips the modem power state, on when it was off and the other way round
type Toggler interface {
	Toggle() error
}

// CommandToggler pulses the PWRKEY through external commands, e.g. a GPIO tool
type CommandToggler struct {
	Press    []string
	Release  []string
	Hold     time.Duration
	BootWait time.Duration

	run   func(argv []string) error
	sleep func(time.Duration)
}

func NewCommandToggler(press []string, release []string, hold time.Duration, bootWait time.Duration) *CommandToggler {
	if hold <= 0 {
		hold = DefaultHold
	}
	if bootWait <= 0 {
		bootWait = DefaultBootWait
	}

	return &CommandToggler{
		Press:    press,
		Release:  release,
		Hold:     hold,
		BootWait: bootWait,
		run:      runCommand,
		sleep:    time.Sleep,
	}
}

func runCommand(argv []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w (%s)", strings.Join(argv, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *CommandToggler) Toggle() error {
	if len(c.Press) == 0 {
		return ErrNoCommand
	}

	log.Info("pressing power key", zap.Strings("cmd", c.Press), zap.Duration("hold", c.Hold))
	if err := c.run(c.Press); err != nil {
		return err
	}
	c.sleep(c.Hold)

	if len(c.Release) > 0 {
		if err := c.run(c.Release); err != nil {
			return err
		}
	}

	log.Info("power key released, waiting for boot", zap.Duration("wait", c.BootWait))
	c.sleep(c.BootWait)
	return nil
}

// USBResetter is the part of the usb manager the fallback needs
type USBResetter interface {
	FindSupportedDevices() usb.DeviceMap
	ResetDevice(target usb.DeviceType) error
}

// USBResetToggler resets the modem's USB port. It does not cut power but
// gets a hung modem to re-enumerate.
type USBResetToggler struct {
	Manager  USBResetter
	Device   usb.DeviceType
	BootWait time.Duration

	sleep func(time.Duration)
}

func NewUSBResetToggler(m USBResetter, device usb.DeviceType, bootWait time.Duration) *USBResetToggler {
	if bootWait <= 0 {
		bootWait = DefaultBootWait
	}
	return &USBResetToggler{Manager: m, Device: device, BootWait: bootWait, sleep: time.Sleep}
}

func (u *USBResetToggler) Toggle() error {
	if _, attached := u.Manager.FindSupportedDevices()[u.Device]; !attached {
		return usb.NewNotFoundError(fmt.Sprintf("%s not attached", usb.SupportedDevices[u.Device].Name))
	}

	if err := u.Manager.ResetDevice(u.Device); err != nil {
		return err
	}

	u.sleep(u.BootWait)
	return nil
}

// Chain tries the togglers in order until one succeeds
type Chain []Toggler

func (c Chain) Toggle() error {
	if len(c) == 0 {
		return ErrNoCommand
	}

	var errs error
	for i, t := range c {
		err := t.Toggle()
		if err == nil {
			return nil
		}

		log.Warn("power toggle failed", zap.Int("toggler", i), zap.Error(err))
		errs = multierr.Append(errs, err)
	}
	return errs
}
