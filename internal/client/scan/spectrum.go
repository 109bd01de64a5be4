package scan

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/pkg/log"
	"github.com/sondewatch/client/pkg/system/procpipe"
	"go.uber.org/zap"
)

// ErrScanToolFailed marks the distinguished rtl_power failure status. The
// receiver is unusable at this point and the whole pipeline has to stop.
var ErrScanToolFailed = errors.New("rtl_power exited with a failure status")

// SpectrumParseError is a structured failure for a corrupt scan artifact.
// It is transient, the caller retries the scan.
type SpectrumParseError struct {
	Line   int
	Reason string
}

func (e *SpectrumParseError) Error() string {
	return fmt.Sprintf("corrupt scan artifact at line %d: %s", e.Line, e.Reason)
}

func (e *SpectrumParseError) Is(tgt error) bool {
	_, ok := tgt.(*SpectrumParseError)
	return ok
}

// PowerSpectrum is one scan pass over the search band. Immutable once read.
type PowerSpectrum struct {
	// Bin center frequencies in Hz
	Freq []float64
	// Power per bin in dB
	Power []float64
	// Bin width in Hz
	Step float64
}

// Sampler drives rtl_power over the configured band and materializes the
// resulting power log.
type Sampler struct {
	startHz float64
	stopHz  float64
	stepHz  float64
	dwell   time.Duration

	// Per-run artifact path, rtl_power overwrites it on every pass
	artifact string

	runner func(ctx context.Context, script string) (int, error)
}

func NewSampler(cfg config.SearchConfig) *Sampler {
	return &Sampler{
		startHz:  cfg.MinFreqMHz * 1e6,
		stopHz:   cfg.MaxFreqMHz * 1e6,
		stepHz:   cfg.StepHz,
		dwell:    cfg.Dwell.Value(),
		artifact: filepath.Join(os.TempDir(), "power_"+uuid.NewString()+".csv"),
		runner:   procpipe.Run,
	}
}

// Scan runs one single-shot rtl_power pass and parses the artifact.
// An ErrScanToolFailed return is fatal, every other error is a transient
// scan failure the search loop may retry.
func (s *Sampler) Scan(ctx context.Context) (*PowerSpectrum, error) {
	script := fmt.Sprintf("rtl_power -f %.0f:%.0f:%.0f -i %d -1 %s",
		s.startHz, s.stopHz, s.stepHz, int(s.dwell.Seconds()), s.artifact)

	log.Info("running frequency scan",
		zap.Float64("start_hz", s.startHz),
		zap.Float64("stop_hz", s.stopHz),
	)

	// Hard ceiling so a wedged receiver cannot stall the search forever
	scanCtx, cancel := context.WithTimeout(ctx, s.dwell+10*time.Second)
	defer cancel()

	code, err := s.runner(scanCtx, script)
	if err != nil {
		return nil, err
	}

	// Only the distinguished failure status is fatal, everything else
	// falls through to the artifact read which reports transient errors.
	if code == 1 {
		return nil, ErrScanToolFailed
	}

	return ReadPowerLog(s.artifact)
}

// ReadPowerLog parses a single-shot rtl_power csv log. The first six fields of
// every line describe the scan parameters, the rest are power samples.
func ReadPowerLog(path string) (*PowerSpectrum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	spectrum := &PowerSpectrum{}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		fields := strings.Split(scanner.Text(), ",")
		if len(fields) < 6 {
			return nil, &SpectrumParseError{lineNo, "fewer than six leading fields"}
		}

		// fields[0] and fields[1] carry the scan start date and time,
		// neither matters for peak extraction
		startFreq, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, &SpectrumParseError{lineNo, "bad start frequency"}
		}
		step, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
		if err != nil {
			return nil, &SpectrumParseError{lineNo, "bad frequency step"}
		}

		spectrum.Step = step

		for i, raw := range fields[6:] {
			power, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, &SpectrumParseError{lineNo, "bad power sample"}
			}

			spectrum.Freq = append(spectrum.Freq, startFreq+float64(i)*step)
			spectrum.Power = append(spectrum.Power, power)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(spectrum.Power) == 0 {
		return nil, &SpectrumParseError{lineNo, "no power samples"}
	}

	return spectrum, nil
}
