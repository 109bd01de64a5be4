package decode

import (
	"strconv"
	"strings"

	"github.com/sondewatch/client/internal/client/scan"
	"github.com/sondewatch/client/pkg/log"
	"github.com/sondewatch/client/pkg/misc"
	"go.uber.org/zap"
)

// A decoder line carries exactly these comma separated fields, in order:
// frame, id, date, time, lat, lon, alt, vel_h, heading, vel_v, crc
const recordFieldCount = 11

// Record is one validated telemetry frame. It is only ever constructed from a
// line that parsed completely and is not mutated after creation.
type Record struct {
	Frame   int
	ID      string
	Date    string
	Time    string
	Lat     float64
	Lon     float64
	Alt     float64
	VelH    float64
	Heading float64
	VelV    float64
	CRC     string

	// Optional sensor fields, zero when the decoder does not emit them
	Temperature float64
	Humidity    float64

	// Pipeline-level facts attached by the supervisor, not part of the line
	FreqLabel string
	Type      scan.SondeType
}

// ParseLine converts one raw decoder output line into a Record. Malformed
// lines are logged and rejected, a parse fault never crosses this boundary.
//
// Sample input:
//
//	106,M3553150,2017-04-30,05:44:40.460,-34.72471,138.69178,-263.83, 0.1,265.0,0.3,OK
func ParseLine(line string) (*Record, bool) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) < recordFieldCount {
		log.Error("not enough telemetry fields", zap.String("line", line))
		return nil, false
	}

	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	frame, err := strconv.Atoi(fields[0])
	if err != nil {
		log.Error("could not parse telemetry line", zap.String("line", line), zap.Error(err))
		return nil, false
	}

	rec := &Record{
		Frame: frame,
		ID:    fields[1],
		Date:  fields[2],
		Time:  fields[3],
		CRC:   fields[10],
	}

	floats := []struct {
		dst *float64
		idx int
	}{
		{&rec.Lat, 4},
		{&rec.Lon, 5},
		{&rec.Alt, 6},
		{&rec.VelH, 7},
		{&rec.Heading, 8},
		{&rec.VelV, 9},
	}

	for _, f := range floats {
		v, err := strconv.ParseFloat(fields[f.idx], 64)
		if err != nil {
			log.Error("could not parse telemetry line", zap.String("line", line), zap.Error(err))
			return nil, false
		}
		*f.dst = v
	}

	// Trailing sensor fields are optional and parsed leniently, a missing
	// or garbled reading does not invalidate the position frame
	if len(fields) > 11 {
		rec.Temperature = misc.ParseFloat(fields[11], 0, "temperature")
	}
	if len(fields) > 12 {
		rec.Humidity = misc.ParseFloat(fields[12], 0, "humidity")
	}

	return rec, true
}
