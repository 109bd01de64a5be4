package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/internal/client/decode"
)

const habitatTimeout = 20 * time.Second

// HabitatClient submits UKHAS telemetry sentences to a habitat-compatible
// endpoint. This is the secondary delivery channel and stays disabled unless
// explicitly configured.
type HabitatClient struct {
	client *req.Client
	cfg    config.HabitatConfig
}

func NewHabitatClient(cfg config.HabitatConfig) *HabitatClient {
	return &HabitatClient{
		client: req.C().SetTimeout(habitatTimeout),
		cfg:    cfg,
	}
}

// GetClient Use this for tests to set the transport to mock
func (h *HabitatClient) GetClient() *req.Client {
	return h.client
}

// BuildSentence renders a record as a UKHAS telemetry sentence including the
// CRC16-CCITT checksum over the payload between "$$" and "*".
func (h *HabitatClient) BuildSentence(rec *decode.Record) string {
	callsign := h.cfg.Callsign
	if callsign == "" {
		callsign = rec.ID
	}

	payload := fmt.Sprintf("%s,%d,%s,%.5f,%.5f,%.1f",
		callsign, rec.Frame, rec.Time, rec.Lat, rec.Lon, rec.Alt)

	return fmt.Sprintf("$$%s*%04X\n", payload, crc16Ccitt([]byte(payload)))
}

// Push submits one sentence. Failures are reported to the dispatcher which
// logs and moves on, delivery is best effort.
func (h *HabitatClient) Push(ctx context.Context, rec *decode.Record) error {
	sentence := h.BuildSentence(rec)

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"sentence": base64.StdEncoding.EncodeToString([]byte(sentence)),
		}).
		Post(h.cfg.Url)

	if err != nil {
		return err
	}
	if resp.IsErrorState() {
		return fmt.Errorf("habitat upload failed: %s", resp.Status)
	}

	return nil
}

func crc16Ccitt(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
