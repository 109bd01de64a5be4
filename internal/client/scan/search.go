package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/pkg/log"
	"go.uber.org/zap"
)

// Wait before retrying after a failed or empty scan pass
const scanRetryBackoff = 10 * time.Second

// SpectrumSource produces one power spectrum per scan pass.
type SpectrumSource interface {
	Scan(ctx context.Context) (*PowerSpectrum, error)
}

// SondeDetector classifies a single candidate frequency.
type SondeDetector interface {
	Classify(ctx context.Context, freqHz float64) SondeType
}

// Outcome is the terminal result of a successful search.
type Outcome struct {
	FrequencyHz float64
	Type        SondeType
}

// Controller drives scan -> peak detection -> quantization -> classification
// until a sonde is found or the attempt budget runs out.
type Controller struct {
	source   SpectrumSource
	detector SondeDetector
	cfg      config.SearchConfig

	backoff time.Duration
	sleep   func(ctx context.Context, d time.Duration)
}

func NewController(source SpectrumSource, detector SondeDetector, cfg config.SearchConfig) *Controller {
	return &Controller{
		source:   source,
		detector: detector,
		cfg:      cfg,
		backoff:  scanRetryBackoff,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Run executes the search state machine. It returns the found sonde, or
// (nil, nil) when the attempt budget was exhausted without a detection.
// Exhaustion is an expected outcome, not an operational fault. The only
// non-recoverable errors are a cancelled context and ErrScanToolFailed.
func (c *Controller) Run(ctx context.Context) (*Outcome, error) {
	attempts := c.cfg.Attempts

	for attempts > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		spectrum, err := c.source.Scan(ctx)
		if err != nil {
			if errors.Is(err, ErrScanToolFailed) {
				return nil, err
			}

			// Transient scan failure, retry after a fixed backoff
			log.Warn("scan pass failed, retrying", zap.Error(err))
			attempts--
			c.sleep(ctx, c.backoff)
			continue
		}

		candidates := c.rankCandidates(spectrum)
		if len(candidates) == 0 {
			log.Info("no peaks found on this pass")
			attempts--
			c.sleep(ctx, c.backoff)
			continue
		}

		log.Info("peaks found", zap.String("freqs_mhz", formatMHz(candidates)))

		// Probe in ranked order and stop at the first hit
		for _, freq := range candidates {
			if t := c.detector.Classify(ctx, freq); t.Detected() {
				return &Outcome{FrequencyHz: freq, Type: t}, nil
			}
		}

		attempts--
		log.Warn("search attempt failed",
			zap.Int("attempts_remaining", attempts),
			zap.Duration("delay", c.cfg.Delay.Value()),
		)
		c.sleep(ctx, c.cfg.Delay.Value())
	}

	return nil, nil
}

// rankCandidates extracts peaks above the noise floor, orders them by
// descending power and quantizes them onto the configured grid. Duplicate
// quantized frequencies are only probed once per pass.
func (c *Controller) rankCandidates(spectrum *PowerSpectrum) []float64 {
	threshold := NoiseFloor(spectrum.Power) + c.cfg.MinSNR

	minDist := 1
	if spectrum.Step > 0 {
		minDist = int(c.cfg.MinDistanceHz / spectrum.Step)
	}

	peaks := DetectPeaks(spectrum.Power, threshold, minDist)

	seen := make(map[float64]bool, len(peaks))
	var freqs []float64
	for _, idx := range peaks {
		f := Quantize(spectrum.Freq[idx], c.cfg.QuantizationHz)
		if seen[f] {
			continue
		}
		seen[f] = true
		freqs = append(freqs, f)
	}

	return freqs
}

func formatMHz(freqs []float64) string {
	sorted := make([]float64, len(freqs))
	copy(sorted, freqs)
	sort.Float64s(sorted)

	out := ""
	for i, f := range sorted {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%.3f", f/1e6)
	}
	return out
}
