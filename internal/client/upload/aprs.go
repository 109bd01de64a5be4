package upload

import (
	"fmt"
	"math"
	"net"
	"time"

	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/internal/client/decode"
)

const aprsDialTimeout = 10 * time.Second

// AprsClient pushes balloon objects into the APRS-IS network. One TCP
// connection per object keeps the client stateless, the upload rate is slow
// enough that connection reuse buys nothing.
type AprsClient struct {
	cfg config.AprsConfig

	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

func NewAprsClient(cfg config.AprsConfig) *AprsClient {
	return &AprsClient{
		cfg:  cfg,
		dial: net.DialTimeout,
	}
}

// BuildObjectPacket renders a telemetry record as an APRS object report.
// The object name is padded/truncated to the 9 characters the format demands.
func BuildObjectPacket(rec *decode.Record, objectName, comment, user string) string {
	latDeg := int(math.Abs(rec.Lat))
	latMin := (math.Abs(rec.Lat) - float64(latDeg)) * 60
	latDir := "N"
	if rec.Lat < 0 {
		latDir = "S"
	}

	lonDeg := int(math.Abs(rec.Lon))
	lonMin := (math.Abs(rec.Lon) - float64(lonDeg)) * 60
	lonDir := "E"
	if rec.Lon < 0 {
		lonDir = "W"
	}

	if len(objectName) > 9 {
		objectName = objectName[:9]
	}

	course := int(math.Mod(rec.Heading+0.5, 360))
	speedKt := int(rec.VelH*1.94384 + 0.5)
	altFt := int(rec.Alt / 0.3048)

	return fmt.Sprintf("%s>APRS,TCPIP*:;%-9s*111111z%02d%05.2f%s/%03d%05.2f%sO%03d/%03d/A=%06d %s",
		user, objectName,
		latDeg, latMin, latDir,
		lonDeg, lonMin, lonDir,
		course, speedKt, altFt,
		comment,
	)
}

// PushBalloon logs into APRS-IS and submits one object report. The rendered
// packet is returned for debug logging.
func (c *AprsClient) PushBalloon(rec *decode.Record, objectName, comment string) (string, error) {
	packet := BuildObjectPacket(rec, objectName, comment, c.cfg.User)

	conn, err := c.dial("tcp", c.cfg.Server, aprsDialTimeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(aprsDialTimeout)); err != nil {
		return "", err
	}

	login := fmt.Sprintf("user %s pass %s vers %s\r\n", c.cfg.User, c.cfg.Pass, config.ProductName)
	if _, err := conn.Write([]byte(login)); err != nil {
		return "", err
	}

	if _, err := conn.Write([]byte(packet + "\r\n")); err != nil {
		return "", err
	}

	return packet, nil
}
