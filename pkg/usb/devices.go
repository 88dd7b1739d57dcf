package usb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

type DeviceType int

const (
	Unknown DeviceType = iota
	// Modems
	ModemSIM7070G
	ModemSIM7600
)

var (
	SupportedDevices = DeviceMap{
		ModemSIM7070G: {
			VendorID:  0x1e0e,
			ProductID: 0x9206,
			Name:      "Simtech SIM7070G",
		},
		ModemSIM7600: {
			VendorID:  0x1e0e,
			ProductID: 0x9001,
			Name:      "Simtech SIM7[5|6]00",
		},
	}
)

type Device struct {
	Name      string
	VendorID  gousb.ID
	ProductID gousb.ID
}

func (d *Device) String() string {
	return fmt.Sprintf("%s pid: %s vid: %s", d.Name, d.ProductID.String(), d.VendorID.String())
}

type DeviceMap map[DeviceType]*Device

type DeviceTuple struct {
	*Device
	DeviceType
}

func FindSupportedDeviceTuple(vendorID gousb.ID, productID gousb.ID) (DeviceTuple, bool) {
	for k, device := range SupportedDevices {
		if device.VendorID == vendorID && device.ProductID == productID {
			return DeviceTuple{DeviceType: k, Device: device}, true
		}
	}
	return DeviceTuple{}, false
}

// DeviceTypeByName maps a configured modem name to its device type
func DeviceTypeByName(name string) (DeviceType, bool) {
	switch strings.ToLower(name) {
	case "sim7070g", "sim7070":
		return ModemSIM7070G, true
	case "sim7600":
		return ModemSIM7600, true
	}
	return Unknown, false
}

func ParseHexUINT16(str string) (uint16, error) {
	val, err := strconv.ParseUint(str, 16, 16)
	if err != nil {
		return 0, err
	}

	return uint16(val), nil
}

// ParseProduct splits a udev PRODUCT value like "1e0e/9206/0" into vendor and product id
func ParseProduct(product string) (vid uint16, pid uint16, err error) {
	s := strings.Split(product, "/")
	if len(s) < 2 {
		return 0, 0, fmt.Errorf("malformed product string %q", product)
	}

	if vid, err = ParseHexUINT16(s[0]); err != nil {
		return 0, 0, fmt.Errorf("vendor id %q: %w", s[0], err)
	}
	if pid, err = ParseHexUINT16(s[1]); err != nil {
		return 0, 0, fmt.Errorf("product id %q: %w", s[1], err)
	}
	return vid, pid, nil
}
