package config

// If you want to modify any field at run-time here, make sure to lock it using a mutex
type ClientConfig struct {
	StationName string `toml:"station_name,omitempty"`
	LogDir      string `toml:"log_dir,omitempty" comment:"directory for the per-run log files, empty disables file logging"`
	Debug       bool   `toml:"debug"`
}

type ClientConfigManager struct {
	BaseConfigManager[ClientConfig]
}

// Verify verifies the "hard" conditions that the rest of the code relies on
func (a *ClientConfigManager) Verify() error {
	return nil
}

func NewClientConfigManager(config *ClientConfig, mgr *Manager) *ClientConfigManager {
	j := ClientConfigManager{}
	j.conf = config
	j.mgr = mgr

	return &j
}

type SdrConfig struct {
	// Receiver frequency correction in ppm, handed to rtl_fm -p
	PPM  int64 `toml:"ppm,omitempty"`
	Gain int64 `toml:"gain,omitempty"`
}

type SdrConfigManager struct {
	BaseConfigManager[SdrConfig]
}

func (a *SdrConfigManager) Verify() error {
	return nil
}

func NewSdrConfigManager(config *SdrConfig, mgr *Manager) *SdrConfigManager {
	j := SdrConfigManager{}
	j.conf = config
	j.mgr = mgr

	return &j
}
