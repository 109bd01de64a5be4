package scan

import (
	"context"
	"testing"
	"time"

	"github.com/sondewatch/client/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedSource struct {
	scans   int
	produce func() (*PowerSpectrum, error)
}

func (s *scriptedSource) Scan(ctx context.Context) (*PowerSpectrum, error) {
	s.scans++
	return s.produce()
}

type scriptedDetector struct {
	probed  []float64
	answers map[float64]SondeType
}

func (d *scriptedDetector) Classify(ctx context.Context, freqHz float64) SondeType {
	d.probed = append(d.probed, freqHz)
	if t, ok := d.answers[freqHz]; ok {
		return t
	}
	return TypeNone
}

// recordingController swaps the sleeps out so the tests run instantly
func recordingController(source SpectrumSource, detector SondeDetector) (*Controller, *[]time.Duration) {
	c := NewController(source, detector, testSearchConfig())

	var slept []time.Duration
	c.backoff = 10 * time.Millisecond
	c.sleep = func(ctx context.Context, d time.Duration) {
		slept = append(slept, d)
	}

	return c, &slept
}

func flatSpectrum() *PowerSpectrum {
	spectrum := &PowerSpectrum{Step: 800}
	for i := 0; i < 100; i++ {
		spectrum.Freq = append(spectrum.Freq, 400400000+float64(i)*800)
		spectrum.Power = append(spectrum.Power, -30)
	}
	return spectrum
}

func TestControllerExhaustsOnEmptyBand(t *testing.T) {
	log.Init(true, "")

	source := &scriptedSource{produce: func() (*PowerSpectrum, error) {
		return flatSpectrum(), nil
	}}
	detector := &scriptedDetector{}

	c, slept := recordingController(source, detector)

	outcome, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcome)

	// One scan and one backoff sleep per configured attempt, and the
	// decoder path was never touched
	assert.Equal(t, 3, source.scans)
	assert.Equal(t, []time.Duration{c.backoff, c.backoff, c.backoff}, *slept)
	assert.Empty(t, detector.probed)
}

func TestControllerExhaustsOnClassifyMiss(t *testing.T) {
	log.Init(true, "")

	spectrum := flatSpectrum()
	spectrum.Power[40] = -5

	source := &scriptedSource{produce: func() (*PowerSpectrum, error) {
		return spectrum, nil
	}}
	detector := &scriptedDetector{}

	c, slept := recordingController(source, detector)

	outcome, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, outcome)

	// A full classification miss waits the configured delay, not the
	// fixed scan backoff
	require.Len(t, *slept, 3)
	for _, d := range *slept {
		assert.Equal(t, c.cfg.Delay.Value(), d)
	}
}

func TestControllerFindsSecondCandidate(t *testing.T) {
	log.Init(true, "")

	spectrum := flatSpectrum()
	spectrum.Power[10] = -2 // strongest, not a sonde
	spectrum.Power[40] = -5 // second ranked, RS41

	secondFreq := Quantize(spectrum.Freq[40], 5000)

	source := &scriptedSource{produce: func() (*PowerSpectrum, error) {
		return spectrum, nil
	}}
	detector := &scriptedDetector{answers: map[float64]SondeType{
		secondFreq: TypeRS41,
	}}

	c, _ := recordingController(source, detector)

	outcome, err := c.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, secondFreq, outcome.FrequencyHz)
	assert.Equal(t, TypeRS41, outcome.Type)

	// Probed in ranked order and stopped on the hit, no further scans
	assert.Equal(t, 1, source.scans)
	require.Len(t, detector.probed, 2)
	assert.Equal(t, Quantize(spectrum.Freq[10], 5000), detector.probed[0])
}

func TestControllerScanToolFailureIsFatal(t *testing.T) {
	log.Init(true, "")

	source := &scriptedSource{produce: func() (*PowerSpectrum, error) {
		return nil, ErrScanToolFailed
	}}
	detector := &scriptedDetector{}

	c, slept := recordingController(source, detector)

	_, err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrScanToolFailed)

	// Fatal failures abort immediately, no retries and no peak detection
	assert.Equal(t, 1, source.scans)
	assert.Empty(t, *slept)
	assert.Empty(t, detector.probed)
}

func TestControllerRetriesTransientScanFailure(t *testing.T) {
	log.Init(true, "")

	calls := 0
	spectrum := flatSpectrum()
	spectrum.Power[40] = -5
	target := Quantize(spectrum.Freq[40], 5000)

	source := &scriptedSource{produce: func() (*PowerSpectrum, error) {
		calls++
		if calls == 1 {
			return nil, &SpectrumParseError{1, "fewer than six leading fields"}
		}
		return spectrum, nil
	}}
	detector := &scriptedDetector{answers: map[float64]SondeType{target: TypeRS41}}

	c, slept := recordingController(source, detector)

	outcome, err := c.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, outcome)

	assert.Equal(t, 2, source.scans)
	assert.Equal(t, []time.Duration{c.backoff}, *slept)
}
