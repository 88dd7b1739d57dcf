// Package gateway wires the modem driver to its host collaborators and offers
// the workflows of the cellular gateway: bring-up, ping, TCP and HTTP tests and
// certificate upload.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/LeoCommon/cellgw/internal/gateway/config"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/at"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/sim7070"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modem/transport"
	"github.com/LeoCommon/cellgw/internal/modem_manager/modemlog"
	"github.com/LeoCommon/cellgw/internal/modem_manager/power"
	"github.com/LeoCommon/cellgw/pkg/geoip"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/LeoCommon/cellgw/pkg/system/services/net"
	"github.com/LeoCommon/cellgw/pkg/systemd"
	"github.com/LeoCommon/cellgw/pkg/usb"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UnitManager controls host services, systemd over dbus in production
type UnitManager interface {
	StopUnit(ctx context.Context, unitName string) (bool, error)
	CheckUnitState(ctx context.Context, unitName string) (string, error)
	Shutdown() error
}

// DeviceWaiter blocks until the modem enumerated on usb
type DeviceWaiter interface {
	WaitForDevice(ctx context.Context, target usb.DeviceType) error
}

type Locator interface {
	Lookup(ctx context.Context, host string) (*geoip.Location, error)
}

type Connectivity interface {
	HasConnectivity() bool
}

// TrafficLog records the modem traffic and brackets every workflow
type TrafficLog interface {
	at.Sink
	Start(name string) uuid.UUID
	End(err error)
	Close() error
}

// App global app struct that contains all services
type App struct {
	Conf *config.Manager

	Dialer  transport.Dialer
	Power   power.Toggler
	Traffic TrafficLog

	// Optional host collaborators, nil disables what depends on them
	Units   UnitManager
	Devices DeviceWaiter
	Network Connectivity
	GeoIP   Locator

	usbManager *usb.Manager

	engine     *at.Engine
	modem      *sim7070.Modem
	engineOpts []at.Option
	sleep      func(time.Duration)
}

// New builds an app around explicit collaborators, Setup wires the real ones
func New(conf *config.Manager, dialer transport.Dialer, toggler power.Toggler) *App {
	return &App{
		Conf:   conf,
		Dialer: dialer,
		Power:  toggler,
		sleep:  time.Sleep,
	}
}

// Setup connects the host services the configuration asks for. Failing host
// services are logged and disabled, they are never required to talk to the modem.
func Setup(conf *config.Manager, debug bool) (*App, error) {
	mc := conf.Modem().C()
	pc := conf.Power().C()

	a := New(conf, transport.NewSerialDialer(mc.TransportConfig()), nil)

	if path := conf.Log().TrafficFile; path != "" {
		sink, err := modemlog.Open(path)
		if err != nil {
			log.Warn("traffic log not available", zap.String("path", path), zap.Error(err))
		} else {
			a.Traffic = sink
		}
	}

	sysdc, err := systemd.NewConnector()
	if err != nil {
		log.Warn("could not connect to dbus, all related functionality is disabled", zap.Error(err))
	} else {
		a.Units = sysdc

		nsvc, err := net.NewService(sysdc)
		if err != nil {
			log.Error("network service could not be started", zap.Error(err))
		} else {
			a.Network = nsvc
		}
	}

	device, _ := usb.DeviceTypeByName(mc.Model)
	if mc.USBDetect || pc.USBResetFallback {
		a.usbManager = usb.NewManager()
		a.usbManager.FindSupportedDevices()
		a.Devices = a.usbManager
	}

	var togglers power.Chain
	if len(pc.Command) > 0 {
		togglers = append(togglers, power.NewCommandToggler(pc.Command, pc.ReleaseCommand, pc.Hold.Value(), pc.BootWait.Value()))
	}
	if pc.USBResetFallback && a.usbManager != nil && device != usb.Unknown {
		togglers = append(togglers, power.NewUSBResetToggler(a.usbManager, device, pc.BootWait.Value()))
	}
	if len(togglers) > 0 {
		a.Power = togglers
	}

	if conf.Ping().C().Geolocate {
		a.GeoIP = geoip.NewClient("", debug)
	}

	return a, nil
}

func (a *App) sink() at.Sink {
	if a.Traffic == nil {
		return at.NopSink{}
	}
	return a.Traffic
}

// Modem returns the driver of the connected modem, nil before Connect
func (a *App) Modem() *sim7070.Modem {
	return a.modem
}

// stopModemManager keeps ModemManager from probing the AT port while we use it
func (a *App) stopModemManager(ctx context.Context) {
	if a.Units == nil {
		log.Warn("cannot stop ModemManager without systemd connection")
		return
	}

	state, err := a.Units.CheckUnitState(ctx, systemd.ModemManagerUnit)
	if err != nil {
		log.Warn("could not query ModemManager state", zap.Error(err))
		return
	}
	if state != systemd.ServiceStateActive {
		log.Debug("ModemManager not running", zap.String("state", state))
		return
	}

	stopped, err := a.Units.StopUnit(ctx, systemd.ModemManagerUnit)
	if err != nil || !stopped {
		log.Warn("stopping ModemManager failed", zap.Bool("stopped", stopped), zap.Error(err))
		return
	}
	log.Info("stopped ModemManager")
}

// Connect opens the AT port, an existing connection is kept
func (a *App) Connect(ctx context.Context) error {
	if a.modem != nil {
		return nil
	}

	if a.Conf.Modem().C().StopModemManager {
		a.stopModemManager(ctx)
	}

	t, err := a.Dialer.Dial()
	if err != nil {
		return err
	}

	opts := append([]at.Option{at.WithSink(a.sink()), at.WithSleep(a.sleep)}, a.engineOpts...)
	a.engine = at.NewEngine(t, opts...)

	mopts := a.Conf.Network().C().Options()
	mopts.Sleep = a.sleep
	a.modem = sim7070.New(a.engine, mopts)
	return nil
}

// disconnect drops the engine, the next Connect dials again
func (a *App) disconnect() {
	if a.engine == nil {
		return
	}

	if err := a.engine.Close(); err != nil {
		log.Debug("closing the engine failed", zap.Error(err))
	}
	a.engine, a.modem = nil, nil
}

func (a *App) Shutdown() {
	a.disconnect()

	if a.Units != nil {
		if err := a.Units.Shutdown(); err != nil {
			log.Warn("systemd connector shutdown failed", zap.Error(err))
		}
	}

	if a.usbManager != nil {
		a.usbManager.Shutdown()
	}

	if a.Traffic != nil {
		if err := a.Traffic.Close(); err != nil {
			log.Warn("closing traffic log failed", zap.Error(err))
		}
	}
}

// isTransportFailure tells transport failures apart from modem answers
func isTransportFailure(err error) bool {
	var te *at.TransportError
	return errors.As(err, &te) || errors.Is(err, at.ErrClosed)
}
