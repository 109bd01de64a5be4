package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrc16Ccitt(t *testing.T) {
	// Standard CCITT-FALSE check value
	assert.Equal(t, uint16(0x29B1), crc16Ccitt([]byte("123456789")))
}

func TestBuildSentence(t *testing.T) {
	h := NewHabitatClient(config.HabitatConfig{Callsign: "SONDEWATCH"})

	sentence := h.BuildSentence(testRecord())

	payload := "SONDEWATCH,106,05:44:40.460,-34.95000,138.52000,10000.0"
	expected := fmt.Sprintf("$$%s*%04X\n", payload, crc16Ccitt([]byte(payload)))
	assert.Equal(t, expected, sentence)
}

func TestBuildSentenceFallsBackToSondeID(t *testing.T) {
	h := NewHabitatClient(config.HabitatConfig{})
	assert.Contains(t, h.BuildSentence(testRecord()), "$$M3553150,106,")
}

func TestHabitatPush(t *testing.T) {
	log.Init(true, "")

	h := NewHabitatClient(config.HabitatConfig{
		Enabled:  true,
		Url:      "http://habitat.example.com/habitat/_design/payload_telemetry/_update/add_listener",
		Callsign: "SONDEWATCH",
	})

	httpmock.ActivateNonDefault(h.GetClient().GetClient())
	defer httpmock.DeactivateAndReset()

	var got map[string]string
	httpmock.RegisterResponder(http.MethodPost, h.cfg.Url,
		func(r *http.Request) (*http.Response, error) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &got))
			return httpmock.NewStringResponse(http.StatusCreated, "ok"), nil
		})

	require.NoError(t, h.Push(context.Background(), testRecord()))

	raw, err := base64.StdEncoding.DecodeString(got["sentence"])
	require.NoError(t, err)
	assert.Equal(t, h.BuildSentence(testRecord()), string(raw))
}

func TestHabitatPushServerError(t *testing.T) {
	log.Init(true, "")

	h := NewHabitatClient(config.HabitatConfig{
		Url: "http://habitat.example.com/upload",
	})

	httpmock.ActivateNonDefault(h.GetClient().GetClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodPost, h.cfg.Url,
		httpmock.NewStringResponder(http.StatusInternalServerError, "boom"))

	assert.Error(t, h.Push(context.Background(), testRecord()))
}
