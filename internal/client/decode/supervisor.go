package decode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/internal/client/scan"
	"github.com/sondewatch/client/pkg/log"
	"github.com/sondewatch/client/pkg/system/procpipe"
	"go.uber.org/zap"
)

var (
	// ErrNoGpsData means neither ephemeris nor almanac data could be
	// obtained. RS92 decoding cannot proceed without one of them.
	ErrNoGpsData = errors.New("could not obtain GPS ephemeris or almanac data")

	// ErrStreamClosed reports that the decoder chain stopped emitting.
	// The supervisor is fail-fast: once the process chain is compromised
	// it terminates the group instead of risking partial telemetry.
	ErrStreamClosed = errors.New("decoder output stream closed")
)

// GpsProvider fetches the auxiliary GPS data the RS92 decoder needs.
// Each call returns the path of the saved file.
type GpsProvider interface {
	FetchEphemeris(ctx context.Context, dest string) (string, error)
	FetchAlmanac(ctx context.Context, dest string) (string, error)
}

type pipeline interface {
	Start() (io.ReadCloser, error)
	Terminate() error
}

// Supervisor owns the long-running type-specific decode pipeline: it builds
// the command chain, streams its output line by line and enqueues every
// validated frame for delivery.
type Supervisor struct {
	sdr   config.SdrConfig
	gps   GpsProvider
	queue *FrameQueue

	newPipeline func(script string) pipeline
}

func NewSupervisor(sdr config.SdrConfig, gps GpsProvider, queue *FrameQueue) *Supervisor {
	return &Supervisor{
		sdr:   sdr,
		gps:   gps,
		queue: queue,
		newPipeline: func(script string) pipeline {
			return procpipe.New(script)
		},
	}
}

// buildScript assembles the demodulate-and-decode pipe chain for the sonde
// type. CRC checking is always enabled: unverified frames must never reach
// the delivery path, so this is policy rather than configuration.
func (s *Supervisor) buildScript(ctx context.Context, freqHz float64, sondeType scan.SondeType) (string, error) {
	gain := ""
	if s.sdr.Gain > 0 {
		gain = fmt.Sprintf("-g %d ", s.sdr.Gain)
	}
	front := fmt.Sprintf("rtl_fm -p %d %s-M fm -s 12k -f %.0f 2>/dev/null |", s.sdr.PPM, gain, freqHz)

	switch sondeType {
	case scan.TypeRS41:
		script := front
		script += "sox -t raw -r 12k -e s -b 16 -c 1 - -r 48000 -b 8 -t wav - lowpass 2600 2>/dev/null |"
		script += "rs41mod --crc --csv"
		return script, nil

	case scan.TypeRS92:
		// RS92 frames carry raw navigation data, the decoder needs
		// ephemeris (preferred) or almanac data to resolve a position
		ephemeris, err := s.gps.FetchEphemeris(ctx, "ephemeris.dat")
		aux := fmt.Sprintf("-e %s", ephemeris)
		if err != nil {
			log.Error("could not obtain ephemeris data, trying to download an almanac", zap.Error(err))

			almanac, err := s.gps.FetchAlmanac(ctx, "almanac.txt")
			if err != nil {
				log.Error("could not obtain GPS ephemeris or almanac data", zap.Error(err))
				return "", ErrNoGpsData
			}
			aux = fmt.Sprintf("-a %s", almanac)
		}

		script := front
		script += "sox -t raw -r 12k -e s -b 16 -c 1 - -r 48000 -b 8 -t wav - lowpass 2500 highpass 20 2>/dev/null |"
		script += fmt.Sprintf("rs92mod --crc --csv %s", aux)
		return script, nil

	default:
		return "", fmt.Errorf("no decoder available for sonde type %s", sondeType)
	}
}

// Run launches the decode pipeline and consumes its output until the stream
// fails or the context is cancelled. On the way out the whole process group
// is terminated so no pipeline stage is left behind.
func (s *Supervisor) Run(ctx context.Context, freqHz float64, sondeType scan.SondeType) error {
	script, err := s.buildScript(ctx, freqHz, sondeType)
	if err != nil {
		return err
	}

	pipe := s.newPipeline(script)
	stdout, err := pipe.Start()
	if err != nil {
		return err
	}

	log.Info("decoder pipeline started",
		zap.Float64("freq_mhz", freqHz/1e6),
		zap.String("type", sondeType.String()),
	)

	// Terminate exactly once, whether we exit through a read fault or an
	// outside cancellation. Killing the group unblocks the stream read.
	var once sync.Once
	terminate := func() {
		once.Do(func() {
			_ = pipe.Terminate()
		})
	}
	stop := context.AfterFunc(ctx, terminate)
	defer stop()
	defer terminate()

	freqLabel := fmt.Sprintf("%.3f MHz", freqHz/1e6)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		rec, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}

		// These are pipeline-level facts, the raw line does not carry them
		rec.FreqLabel = freqLabel
		rec.Type = sondeType

		log.Info("telemetry",
			zap.String("id", rec.ID),
			zap.Int("frame", rec.Frame),
			zap.String("time", rec.Time),
			zap.Float64("lat", rec.Lat),
			zap.Float64("lon", rec.Lon),
			zap.Float64("alt", rec.Alt),
		)

		if !s.queue.Offer(rec) {
			log.Debug("delivery queue full, dropping frame", zap.Int("frame", rec.Frame))
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := scanner.Err(); err != nil {
		log.Error("could not read from decoder stdout", zap.Error(err))
		return err
	}

	log.Error("decoder output stream closed")
	return ErrStreamClosed
}
