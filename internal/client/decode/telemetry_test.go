package decode

import (
	"testing"

	"github.com/sondewatch/client/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	log.Init(true, "")

	rec, ok := ParseLine("106,M3553150,2017-04-30,05:44:40.460,-34.72471,138.69178,-263.83, 0.1,265.0,0.3,OK")
	require.True(t, ok)

	assert.Equal(t, 106, rec.Frame)
	assert.Equal(t, "M3553150", rec.ID)
	assert.Equal(t, "2017-04-30", rec.Date)
	assert.Equal(t, "05:44:40.460", rec.Time)
	assert.Equal(t, -34.72471, rec.Lat)
	assert.Equal(t, 138.69178, rec.Lon)
	assert.Equal(t, -263.83, rec.Alt)
	assert.Equal(t, 0.1, rec.VelH)
	assert.Equal(t, 265.0, rec.Heading)
	assert.Equal(t, 0.3, rec.VelV)
	assert.Equal(t, "OK", rec.CRC)

	// Sensor fields default to zero when the decoder does not emit them
	assert.Zero(t, rec.Temperature)
	assert.Zero(t, rec.Humidity)
}

func TestParseLineSensorFields(t *testing.T) {
	log.Init(true, "")

	rec, ok := ParseLine("106,M3553150,2017-04-30,05:44:40.460,-34.72471,138.69178,-263.83,0.1,265.0,0.3,OK,-42.5,78.0")
	require.True(t, ok)
	assert.Equal(t, -42.5, rec.Temperature)
	assert.Equal(t, 78.0, rec.Humidity)

	// A garbled sensor reading never invalidates the position frame
	rec, ok = ParseLine("106,M3553150,2017-04-30,05:44:40.460,-34.72471,138.69178,-263.83,0.1,265.0,0.3,OK,bogus")
	require.True(t, ok)
	assert.Zero(t, rec.Temperature)
}

func TestParseLineRejects(t *testing.T) {
	log.Init(true, "")

	cases := map[string]string{
		"empty":             "",
		"too few fields":    "106,M3553150,2017-04-30,05:44:40.460,-34.72471,138.69178",
		"non-numeric frame": "x,M3553150,2017-04-30,05:44:40.460,-34.72471,138.69178,-263.83,0.1,265.0,0.3,OK",
		"non-numeric lat":   "106,M3553150,2017-04-30,05:44:40.460,bogus,138.69178,-263.83,0.1,265.0,0.3,OK",
		"non-numeric vel_v": "106,M3553150,2017-04-30,05:44:40.460,-34.72471,138.69178,-263.83,0.1,265.0,x,OK",
	}

	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			rec, ok := ParseLine(line)
			assert.False(t, ok)
			assert.Nil(t, rec)
		})
	}
}
