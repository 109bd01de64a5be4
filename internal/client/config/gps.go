package config

import "net/url"

const (
	// Daily broadcast ephemeris archive, same source the decoder tooling documents
	DefaultEphemerisUrl = "https://cddis.nasa.gov/archive/gnss/data/daily/"
	// Current SEM almanac
	DefaultAlmanacUrl = "https://celestrak.org/GPS/almanac/SEM/almanac.sem.txt"
)

type GpsConfig struct {
	EphemerisUrl string `toml:"ephemeris_url,omitempty"`
	AlmanacUrl   string `toml:"almanac_url,omitempty"`
}

type GpsConfigManager struct {
	BaseConfigManager[GpsConfig]
}

func (a *GpsConfigManager) Verify() error {
	if a.conf.EphemerisUrl == "" {
		a.conf.EphemerisUrl = DefaultEphemerisUrl
	}
	if a.conf.AlmanacUrl == "" {
		a.conf.AlmanacUrl = DefaultAlmanacUrl
	}

	for _, raw := range []string{a.conf.EphemerisUrl, a.conf.AlmanacUrl} {
		if _, err := url.Parse(raw); err != nil {
			return err
		}
	}

	return nil
}

func NewGpsConfigManager(config *GpsConfig, mgr *Manager) *GpsConfigManager {
	j := GpsConfigManager{}
	j.conf = config
	j.mgr = mgr

	return &j
}
