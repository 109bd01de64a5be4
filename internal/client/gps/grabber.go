// Package gps downloads the auxiliary GPS reference data the RS92 decoder
// needs to resolve positions from raw navigation frames.
package gps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/pkg/log"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// HTTPProvider implements decode.GpsProvider against the public broadcast
// ephemeris and almanac archives.
type HTTPProvider struct {
	client *req.Client

	ephemerisUrl string
	almanacUrl   string
}

func NewHTTPProvider(cfg config.GpsConfig) *HTTPProvider {
	client := req.C().
		SetTimeout(requestTimeout).
		SetCommonRetryCount(2)

	return &HTTPProvider{
		client:       client,
		ephemerisUrl: cfg.EphemerisUrl,
		almanacUrl:   cfg.AlmanacUrl,
	}
}

// GetClient Use this for tests to set the transport to mock
func (p *HTTPProvider) GetClient() *req.Client {
	return p.client
}

// ephemerisFileUrl builds the archive path of today's daily broadcast
// ephemeris file, e.g. <base>/2026/brdc/brdc2390.26n.gz
func (p *HTTPProvider) ephemerisFileUrl(now time.Time) string {
	base := strings.TrimSuffix(p.ephemerisUrl, "/")
	return fmt.Sprintf("%s/%04d/brdc/brdc%03d0.%02dn.gz",
		base, now.Year(), now.YearDay(), now.Year()%100)
}

// FetchEphemeris downloads the current broadcast ephemeris into dest and
// returns the saved path.
func (p *HTTPProvider) FetchEphemeris(ctx context.Context, dest string) (string, error) {
	url := p.ephemerisFileUrl(time.Now().UTC())
	log.Info("downloading ephemeris data", zap.String("url", url))

	return p.download(ctx, url, dest)
}

// FetchAlmanac downloads the current SEM almanac into dest and returns the
// saved path.
func (p *HTTPProvider) FetchAlmanac(ctx context.Context, dest string) (string, error) {
	log.Info("downloading almanac data", zap.String("url", p.almanacUrl))

	return p.download(ctx, p.almanacUrl, dest)
}

func (p *HTTPProvider) download(ctx context.Context, url string, dest string) (string, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetOutputFile(dest).
		Get(url)

	if err != nil {
		return "", err
	}
	if resp.IsErrorState() {
		return "", fmt.Errorf("download of %s failed: %s", url, resp.Status)
	}

	return dest, nil
}
