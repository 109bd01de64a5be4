package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/pkg/log"
	"github.com/sondewatch/client/pkg/misc"
	"github.com/sondewatch/client/pkg/system/procpipe"
	"go.uber.org/zap"
)

const detectWindow = 10 * time.Second

// rs_detect signals the transmitter family through its exit status
const (
	detectStatusRS41 = 3
	detectStatusRS92 = 4
)

// Detector probes one frequency with a short FM demodulation chain and maps
// the detector's exit status to a sonde type. No telemetry is extracted here.
type Detector struct {
	ppm  int64
	gain int64

	runner func(ctx context.Context, script string) (int, error)
}

func NewDetector(cfg config.SdrConfig) *Detector {
	return &Detector{
		ppm:    cfg.PPM,
		gain:   cfg.Gain,
		runner: procpipe.Run,
	}
}

func (d *Detector) script(freqHz float64) string {
	gain := ""
	if d.gain > 0 {
		gain = fmt.Sprintf("-g %d ", d.gain)
	}

	script := fmt.Sprintf("rtl_fm -p %d %s-M fm -s 15k -f %.0f 2>/dev/null |", d.ppm, gain, freqHz)
	script += "sox -t raw -r 15k -e s -b 16 -c 1 - -r 48000 -t wav - highpass 20 2>/dev/null |"
	script += "rs_detect -z -t 8 2>/dev/null"
	return script
}

// Classify listens on the frequency for a bounded window and reports the
// detected transmitter family. Unrecognized exit codes are logged and
// surfaced as TypeUnknown rather than silently mapped to none.
func (d *Detector) Classify(ctx context.Context, freqHz float64) SondeType {
	log.Info("attempting sonde detection", zap.Float64("freq_mhz", freqHz/1e6))

	detectCtx, cancel := context.WithTimeout(ctx, detectWindow)
	defer cancel()

	code, err := d.runner(detectCtx, d.script(freqHz))
	if err != nil {
		// The detection window closing without a hit is the common case
		if errors.Is(err, &misc.TimedOutError{}) {
			return TypeNone
		}

		log.Error("detector pipeline failed", zap.Error(err))
		return TypeNone
	}

	switch code {
	case detectStatusRS41:
		log.Info("detected a RS41", zap.Float64("freq_mhz", freqHz/1e6))
		return TypeRS41
	case detectStatusRS92:
		log.Info("detected a RS92", zap.Float64("freq_mhz", freqHz/1e6))
		return TypeRS92
	case 0:
		return TypeNone
	default:
		log.Warn("unrecognized detector exit status", zap.Int("code", code))
		return TypeUnknown
	}
}
