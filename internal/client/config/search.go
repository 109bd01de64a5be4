package config

import (
	"errors"
	"time"
)

const (
	DefaultMinFreqMHz     = 400.4
	DefaultMaxFreqMHz     = 403.5
	DefaultSearchStepHz   = 800
	DefaultScanDwell      = TOMLDuration(20 * time.Second)
	DefaultMinSNR         = 10
	DefaultMinDistanceHz  = 1000
	DefaultQuantizationHz = 5000
	DefaultAttempts       = 5
	DefaultSearchDelay    = TOMLDuration(120 * time.Second)
)

type SearchConfig struct {
	MinFreqMHz float64 `toml:"min_freq_mhz,omitempty"`
	MaxFreqMHz float64 `toml:"max_freq_mhz,omitempty"`
	// Bin width handed to rtl_power
	StepHz float64      `toml:"step_hz,omitempty"`
	Dwell  TOMLDuration `toml:"dwell,omitempty" comment:"integration time of one scan pass"`
	// A peak has to clear the estimated noise floor by this margin (dB)
	MinSNR float64 `toml:"min_snr_db,omitempty"`
	// Two peaks closer than this are merged into the stronger one
	MinDistanceHz  float64 `toml:"min_distance_hz,omitempty"`
	QuantizationHz float64 `toml:"quantization_hz,omitempty"`
	Attempts       int     `toml:"attempts,omitempty"`
	// Wait between search attempts after a full classification miss
	Delay TOMLDuration `toml:"delay,omitempty"`
}

type SearchConfigManager struct {
	BaseConfigManager[SearchConfig]
}

// Verify verifies the "hard" conditions that the rest of the code relies on
func (a *SearchConfigManager) Verify() error {
	c := a.conf

	// Fill the omitted fields with the defaults first
	if c.MinFreqMHz == 0 {
		c.MinFreqMHz = DefaultMinFreqMHz
	}
	if c.MaxFreqMHz == 0 {
		c.MaxFreqMHz = DefaultMaxFreqMHz
	}
	if c.StepHz == 0 {
		c.StepHz = DefaultSearchStepHz
	}
	if c.Dwell == 0 {
		c.Dwell = DefaultScanDwell
	}
	if c.MinSNR == 0 {
		c.MinSNR = DefaultMinSNR
	}
	if c.MinDistanceHz == 0 {
		c.MinDistanceHz = DefaultMinDistanceHz
	}
	if c.QuantizationHz == 0 {
		c.QuantizationHz = DefaultQuantizationHz
	}
	if c.Attempts == 0 {
		c.Attempts = DefaultAttempts
	}
	if c.Delay == 0 {
		c.Delay = DefaultSearchDelay
	}

	if c.MaxFreqMHz <= c.MinFreqMHz {
		return errors.New("search band is empty, max_freq_mhz must exceed min_freq_mhz")
	}
	if c.StepHz < 0 || c.MinDistanceHz < 0 || c.QuantizationHz < 0 {
		return errors.New("search frequency parameters must be positive")
	}
	if c.Attempts < 0 {
		return errors.New("search attempts must be positive")
	}

	return nil
}

func NewSearchConfigManager(config *SearchConfig, mgr *Manager) *SearchConfigManager {
	j := SearchConfigManager{}
	j.conf = config
	j.mgr = mgr

	return &j
}
