package usb

import (
	"fmt"

	"github.com/google/gousb"
)

type DeviceType int

const (
	Unknown DeviceType = iota
	// RTL-SDR receivers usable for rtl_power / rtl_fm
	SDRRTL2832UGeneric
	SDRRTL2832UDVBT
	SDRNooelecNESDR
)

var (
	SupportedDevices = DeviceMap{
		SDRRTL2832UGeneric: {
			VendorID:  0x0bda,
			ProductID: 0x2838,
			Name:      "RTL2832U (RTL-SDR)",
		},
		SDRRTL2832UDVBT: {
			VendorID:  0x0bda,
			ProductID: 0x2832,
			Name:      "RTL2832U (DVB-T)",
		},
		SDRNooelecNESDR: {
			VendorID:  0x1d50,
			ProductID: 0x6089,
			Name:      "Nooelec NESDR",
		},
	}
)

type Device struct {
	Name      string
	VendorID  gousb.ID
	ProductID gousb.ID
}

type DeviceMap map[DeviceType]*Device

func (d *Device) String() string {
	return fmt.Sprintf("%s pid: %s vid: %s", d.Name, d.ProductID.String(), d.VendorID.String())
}
