package client

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/pkg/log"
	"github.com/sondewatch/client/pkg/usb"
)

// App bundles the station-wide services the pipeline depends on.
type App struct {
	Conf  *config.Manager
	Flags config.CLIFlags

	ExitSignal chan os.Signal

	UsbManager *usb.USBDeviceManager
}

func Setup() (*App, error) {
	app := App{}
	app.Flags = config.ParseCLIFlags()

	// Bring up logging on stderr first, the file sink needs the config
	log.Init(app.Flags.Debug, "")

	log.Info("client starting")

	// Register a quit signal
	app.ExitSignal = make(chan os.Signal, 1)
	signal.Notify(app.ExitSignal, os.Interrupt, syscall.SIGTERM)

	// Load the station configuration, immutable from here on
	app.Conf = config.NewManager()
	if err := app.Conf.Load(app.Flags.ConfigPath, false); err != nil {
		return nil, err
	}

	cc := app.Conf.Client().C()
	if cc.LogDir != "" {
		log.Init(app.Flags.Debug || cc.Debug, cc.LogDir)
	}

	// Preflight: scanning without a receiver fails in obscure ways deep
	// inside rtl_power, so surface the problem up front
	app.UsbManager = usb.NewUSBDeviceManager()
	app.UsbManager.FindSupportedDevices()
	if !app.UsbManager.HasReceiver() {
		log.Warn("no supported RTL-SDR receiver attached, scans will likely fail")
	}

	return &app, nil
}
