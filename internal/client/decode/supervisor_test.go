package decode

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/internal/client/scan"
	"github.com/sondewatch/client/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakePipeline struct {
	script     string
	output     string
	started    bool
	terminated bool
}

func (f *fakePipeline) Start() (io.ReadCloser, error) {
	f.started = true
	return io.NopCloser(strings.NewReader(f.output)), nil
}

func (f *fakePipeline) Terminate() error {
	f.terminated = true
	return nil
}

type fakeGps struct {
	ephemerisErr error
	almanacErr   error
}

func (f *fakeGps) FetchEphemeris(ctx context.Context, dest string) (string, error) {
	return dest, f.ephemerisErr
}

func (f *fakeGps) FetchAlmanac(ctx context.Context, dest string) (string, error) {
	return dest, f.almanacErr
}

func newTestSupervisor(queue *FrameQueue, gps GpsProvider, pipe *fakePipeline) *Supervisor {
	s := NewSupervisor(config.SdrConfig{PPM: 55}, gps, queue)
	s.newPipeline = func(script string) pipeline {
		pipe.script = script
		return pipe
	}
	return s
}

func TestSupervisorStreamsTelemetry(t *testing.T) {
	defer goleak.VerifyNone(t)
	log.Init(true, "")

	pipe := &fakePipeline{
		output: "106,M3553150,2017-04-30,05:44:40.460,-34.72471,138.69178,-263.83,0.1,265.0,0.3,OK\n" +
			"this line is decoder chatter, not telemetry\n",
	}
	queue := NewFrameQueue()
	s := newTestSupervisor(queue, &fakeGps{}, pipe)

	err := s.Run(context.Background(), 402500000, scan.TypeRS41)
	assert.ErrorIs(t, err, ErrStreamClosed)

	// Every surviving stage of the chain must be torn down on exit
	assert.True(t, pipe.terminated)

	assert.Contains(t, pipe.script, "rtl_fm -p 55")
	assert.Contains(t, pipe.script, "-f 402500000")
	assert.Contains(t, pipe.script, "rs41mod --crc --csv")

	rec, ok := queue.Poll()
	require.True(t, ok)
	assert.Equal(t, "M3553150", rec.ID)
	assert.Equal(t, "402.500 MHz", rec.FreqLabel)
	assert.Equal(t, scan.TypeRS41, rec.Type)
}

func TestSupervisorRS92UsesEphemeris(t *testing.T) {
	defer goleak.VerifyNone(t)
	log.Init(true, "")

	pipe := &fakePipeline{}
	s := newTestSupervisor(NewFrameQueue(), &fakeGps{}, pipe)

	err := s.Run(context.Background(), 402500000, scan.TypeRS92)
	assert.ErrorIs(t, err, ErrStreamClosed)

	assert.Contains(t, pipe.script, "rs92mod --crc --csv -e ephemeris.dat")
}

func TestSupervisorRS92FallsBackToAlmanac(t *testing.T) {
	defer goleak.VerifyNone(t)
	log.Init(true, "")

	pipe := &fakePipeline{}
	gps := &fakeGps{ephemerisErr: errors.New("server unreachable")}
	s := newTestSupervisor(NewFrameQueue(), gps, pipe)

	err := s.Run(context.Background(), 402500000, scan.TypeRS92)
	assert.ErrorIs(t, err, ErrStreamClosed)

	assert.Contains(t, pipe.script, "rs92mod --crc --csv -a almanac.txt")
}

func TestSupervisorRS92WithoutGpsData(t *testing.T) {
	defer goleak.VerifyNone(t)
	log.Init(true, "")

	pipe := &fakePipeline{}
	gps := &fakeGps{
		ephemerisErr: errors.New("server unreachable"),
		almanacErr:   errors.New("server unreachable"),
	}
	s := newTestSupervisor(NewFrameQueue(), gps, pipe)

	err := s.Run(context.Background(), 402500000, scan.TypeRS92)
	assert.ErrorIs(t, err, ErrNoGpsData)

	// The pipeline must never come up without navigation data
	assert.False(t, pipe.started)
}

func TestSupervisorRejectsUnknownType(t *testing.T) {
	log.Init(true, "")

	pipe := &fakePipeline{}
	s := newTestSupervisor(NewFrameQueue(), &fakeGps{}, pipe)

	err := s.Run(context.Background(), 402500000, scan.TypeUnknown)
	require.Error(t, err)
	assert.False(t, pipe.started)
}
