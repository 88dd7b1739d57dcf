package usb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DiscoResearchSat/go-udev/netlink"
	"github.com/LeoCommon/cellgw/pkg/log"
	"github.com/google/gousb"
	"go.uber.org/zap"
)

// DefaultPollInterval is used by WaitForDevice when udev is not available
const DefaultPollInterval = time.Second

type Manager struct {
	sync.Mutex
	sync.WaitGroup

	// A map of currently connected devices
	devices DeviceMap
	// Callers of WaitForDevice, notified on hotplug
	waiters map[DeviceType][]chan struct{}

	probe        func(d *Device) bool
	pollInterval time.Duration

	// Channel to close the udev monitor if its enabled
	udevCloseChannel chan struct{}
	// The udev event connection, if not nil, udev monitoring is active
	udev *netlink.UEventConn
}

func newManager() *Manager {
	return &Manager{
		devices:          make(DeviceMap),
		waiters:          make(map[DeviceType][]chan struct{}),
		probe:            probeDevice,
		pollInterval:     DefaultPollInterval,
		udevCloseChannel: make(chan struct{}),
	}
}

func NewManager() *Manager {
	m := newManager()
	m.udev = new(netlink.UEventConn)

	// Connect to udev
	if err := m.udev.Connect(netlink.UdevEvent); err != nil {
		log.Error("could not connect to udev, hotplug support not available", zap.Error(err))
		m.udev = nil
	} else {
		m.Add(1)
		go m.monitor()
	}

	return m
}

// probeDevice opens and closes the device to see whether it is attached
func probeDevice(d *Device) bool {
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	dev, err := usbCtx.OpenDeviceWithVIDPID(d.VendorID, d.ProductID)
	if dev == nil {
		if err != nil {
			log.Debug("error while opening usb device", zap.String("device", d.String()), zap.Error(err))
		}
		return false
	}

	dev.Close()
	return true
}

// FindSupportedDevices refreshes and returns the attached supported devices
func (m *Manager) FindSupportedDevices() DeviceMap {
	m.Lock()
	defer m.Unlock()

	found := make(DeviceMap)
	for t, d := range SupportedDevices {
		if !m.probe(d) {
			log.Debug("device not attached", zap.String("device", d.String()))
			delete(m.devices, t)
			continue
		}

		m.devices[t] = d
		found[t] = d
		log.Info("found supported device", zap.String("device", d.String()))
	}

	return found
}

// Attached reports whether a device of the type was last seen attached
func (m *Manager) Attached(target DeviceType) bool {
	m.Lock()
	defer m.Unlock()

	_, ok := m.devices[target]
	return ok
}

func (m *Manager) HotplugReceived(vendorID uint16, productID uint16, wasAdded bool) {
	m.Lock()
	defer m.Unlock()

	// Try to find device, silently ignore if not supported
	tuple, found := FindSupportedDeviceTuple(gousb.ID(vendorID), gousb.ID(productID))
	if !found {
		log.Debug("no matching device found", zap.String("vid", gousb.ID(vendorID).String()), zap.String("pid", gousb.ID(productID).String()))
		return
	}

	if !wasAdded {
		delete(m.devices, tuple.DeviceType)
		log.Info("hotplug device removed", zap.String("device", tuple.Device.String()))
		return
	}

	log.Info("hotplug device added", zap.String("device", tuple.Device.String()))
	m.devices[tuple.DeviceType] = tuple.Device
	m.notify(tuple.DeviceType)
}

// notify wakes all waiters of the type, the lock must be held
func (m *Manager) notify(t DeviceType) {
	for _, ch := range m.waiters[t] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (m *Manager) removeWaiter(t DeviceType, ch chan struct{}) {
	m.Lock()
	defer m.Unlock()

	waiters := m.waiters[t]
	for i, w := range waiters {
		if w == ch {
			m.waiters[t] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
}

// WaitForDevice blocks until a device of the type is attached or ctx is done.
// Without udev the device is polled.
func (m *Manager) WaitForDevice(ctx context.Context, target DeviceType) error {
	d, exists := SupportedDevices[target]
	if !exists {
		return fmt.Errorf("device type %d unknown", target)
	}

	ch := make(chan struct{}, 1)

	m.Lock()
	m.waiters[target] = append(m.waiters[target], ch)
	hotplug := m.udev != nil
	interval := m.pollInterval
	m.Unlock()

	defer m.removeWaiter(target, ch)

	if m.probe(d) {
		m.markAttached(target, d)
		return nil
	}

	var tick <-chan time.Time
	if !hotplug {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	log.Info("waiting for usb device", zap.String("device", d.String()), zap.Bool("hotplug", hotplug))
	for {
		select {
		case <-ch:
			return nil
		case <-tick:
			if m.probe(d) {
				m.markAttached(target, d)
				return nil
			}
		case <-ctx.Done():
			return NewNotFoundError(fmt.Sprintf("%s did not appear: %s", d.Name, ctx.Err()))
		}
	}
}

func (m *Manager) markAttached(t DeviceType, d *Device) {
	m.Lock()
	m.devices[t] = d
	m.Unlock()
}

func (m *Manager) Shutdown() {
	m.Lock()
	monitoring := m.udev != nil
	m.Unlock()

	// Close the udev monitor if it exists, not under the lock as the monitor may be delivering a hotplug event
	if monitoring {
		log.Info("closing udev monitor channel")
		m.udevCloseChannel <- struct{}{}
	}

	m.Wait()
}

// ResetDevice issues a usb port reset, the modem re-enumerates afterwards
func (m *Manager) ResetDevice(target DeviceType) error {
	m.Lock()
	defer m.Unlock()

	// Grab the details for more descriptive errors
	supd, exists := SupportedDevices[target]
	if !exists {
		return fmt.Errorf("device type %d unknown", target)
	}

	d, exists := m.devices[target]
	if !exists {
		return NewNotFoundError(fmt.Sprintf("device with name '%s' not attached", supd.Name))
	}

	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	dev, _ := usbCtx.OpenDeviceWithVIDPID(d.VendorID, d.ProductID)
	if dev == nil {
		log.Error("the device was detected previously, but disappeared", zap.String("device", d.String()))
		delete(m.devices, target)
		return NewVanishedError(fmt.Sprintf("%s disappeared but was detected before", d.String()))
	}
	defer dev.Close()

	if err := dev.Reset(); err != nil {
		log.Error("resetting usb device failed", zap.String("device", d.String()), zap.Error(err))
		return err
	}

	log.Info("usb device reset", zap.String("device", d.String()))
	return nil
}

// Monitor events
func (m *Manager) monitor() {
	errors := make(chan error)

	// BIND OR UNBIND
	matchRule := fmt.Sprintf("%s|%s", netlink.BIND, netlink.UNBIND)
	deviceMatcher := &netlink.RuleDefinitions{
		Rules: []netlink.RuleDefinition{
			{
				// Only match usb_device binds and unbinds
				Action: &matchRule,
				Env: map[string]string{
					"DEVTYPE": "usb_device",
				},
			},
		},
	}

	ctx, cancelUdevMonitor := context.WithCancel(context.Background())
	queue := m.udev.Monitor(ctx, errors, deviceMatcher)

	defer func() {
		m.Lock()
		m.udev.Close()
		m.udev = nil
		m.Done()
		m.Unlock()
	}()

udevMonitorLoop:
	for {
		select {
		case <-m.udevCloseChannel:
			cancelUdevMonitor()
			// Wait for context-cancelled error
			<-errors
			break udevMonitorLoop

		case uevent := <-queue:
			pstr, pok := uevent.Env["PRODUCT"]
			if !pok {
				log.Debug("device did not contain product indicator", zap.String("env", uevent.String()))
				continue
			}

			vid, pid, err := ParseProduct(pstr)
			if err != nil {
				log.Error("could not parse udev product", zap.Error(err))
				continue
			}

			m.HotplugReceived(vid, pid, uevent.Action == netlink.BIND)
		case err := <-errors:
			log.Error("udev monitor encountered an error", zap.Error(err))
		}
	}

	log.Info("stopped observing udev events")
}
