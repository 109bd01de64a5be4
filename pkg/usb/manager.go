package usb

import (
	"sync"

	"github.com/google/gousb"
	"github.com/sondewatch/client/pkg/log"
	"go.uber.org/zap"
)

// USBDeviceManager keeps track of the attached receiver hardware. The scan and
// decode pipelines only need one RTL-SDR dongle, so this is a startup preflight
// rather than a hotplug monitor.
type USBDeviceManager struct {
	sync.Mutex

	// A map of currently connected devices
	devices DeviceMap
}

func NewUSBDeviceManager() *USBDeviceManager {
	return &USBDeviceManager{
		devices: make(DeviceMap),
	}
}

func (m *USBDeviceManager) FindSupportedDevices() DeviceMap {
	m.Lock()
	defer m.Unlock()

	usbCtx := gousb.NewContext()
	for supSDR, d := range SupportedDevices {
		dev, err := usbCtx.OpenDeviceWithVIDPID(d.VendorID, d.ProductID)
		if dev == nil {
			log.Debug("device not attached", zap.String("sdr", d.String()))
			continue
		}

		// close the device
		dev.Close()

		if err != nil {
			log.Error("error while iterating over usb devices", zap.Error(err))
			continue
		}

		// Add the device to the found devices
		m.devices[supSDR] = d
		log.Info("found supported device", zap.String("sdr", d.String()))
	}
	usbCtx.Close()

	return m.devices
}

// HasReceiver reports whether any supported RTL-SDR dongle was found.
func (m *USBDeviceManager) HasReceiver() bool {
	m.Lock()
	defer m.Unlock()
	return len(m.devices) > 0
}
