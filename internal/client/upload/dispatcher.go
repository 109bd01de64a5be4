package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/internal/client/decode"
	"github.com/sondewatch/client/pkg/log"
	"go.uber.org/zap"
)

// Wait between empty polls. Deliberately much shorter than the upload rate:
// the rate limit applies to deliveries, an idle dispatcher should pick up a
// fresh record promptly and stay responsive to shutdown.
const pollInterval = 250 * time.Millisecond

// BalloonPusher is the primary (APRS-style) delivery collaborator.
type BalloonPusher interface {
	PushBalloon(rec *decode.Record, objectName, comment string) (string, error)
}

// SentencePusher is the secondary delivery channel.
type SentencePusher interface {
	Push(ctx context.Context, rec *decode.Record) error
}

// FrameStore persists frames locally.
type FrameStore interface {
	InsertFrame(rec *decode.Record) error
	FrameCount(sondeID string) (int, error)
}

// Dispatcher drains the bounded delivery queue in the background and relays
// each record to the enabled delivery services. It never blocks the decoder:
// the queue drops on overflow and the dispatcher only ever polls.
type Dispatcher struct {
	queue *decode.FrameQueue

	// Any of these may be nil, which disables the channel
	aprs    BalloonPusher
	habitat SentencePusher
	store   FrameStore

	cfg        config.AprsConfig
	uploadRate time.Duration
	poll       time.Duration

	// Sonde id of the last persisted record, for the shutdown summary
	lastID string
}

func NewDispatcher(queue *decode.FrameQueue, cfg config.AprsConfig) *Dispatcher {
	return &Dispatcher{
		queue:      queue,
		cfg:        cfg,
		uploadRate: cfg.UploadRate.Value(),
		poll:       pollInterval,
	}
}

func (d *Dispatcher) WithAprs(p BalloonPusher) *Dispatcher {
	d.aprs = p
	return d
}

func (d *Dispatcher) WithHabitat(p SentencePusher) *Dispatcher {
	d.habitat = p
	return d
}

func (d *Dispatcher) WithStore(s FrameStore) *Dispatcher {
	d.store = s
	return d
}

// Run loops until the context is cancelled. The rate limit sleep happens
// only after a processed record, an empty poll waits the short poll interval.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info("upload dispatcher started")

	for {
		if ctx.Err() != nil {
			d.logStoreSummary()
			log.Info("upload dispatcher stopping")
			return
		}

		rec, ok := d.queue.Poll()
		if !ok {
			sleepCtx(ctx, d.poll)
			continue
		}

		d.process(ctx, rec)
		sleepCtx(ctx, d.uploadRate)
	}
}

func (d *Dispatcher) process(ctx context.Context, rec *decode.Record) {
	if d.store != nil {
		if err := d.store.InsertFrame(rec); err != nil {
			log.Error("could not persist telemetry frame", zap.Error(err))
		} else {
			d.lastID = rec.ID
		}
	}

	if d.aprs != nil {
		comment := ExpandComment(d.cfg.CustomComment, rec)

		packet, err := d.aprs.PushBalloon(rec, d.objectName(rec), comment)
		if err != nil {
			log.Error("aprs push failed", zap.Error(err))
		} else {
			log.Debug("data pushed to APRS-IS", zap.String("packet", packet))
		}
	}

	if d.habitat != nil {
		if err := d.habitat.Push(ctx, rec); err != nil {
			log.Error("habitat push failed", zap.Error(err))
		}
	}
}

// logStoreSummary reports how many frames of the tracked sonde ended up in the
// local frame log.
func (d *Dispatcher) logStoreSummary() {
	if d.store == nil || d.lastID == "" {
		return
	}

	count, err := d.store.FrameCount(d.lastID)
	if err != nil {
		log.Error("could not read frame log total", zap.Error(err))
		return
	}

	log.Info("telemetry frames persisted",
		zap.String("id", d.lastID),
		zap.Int("frames", count),
	)
}

// objectName resolves the configured object id, "<id>" substitutes the sonde
// serial.
func (d *Dispatcher) objectName(rec *decode.Record) string {
	if d.cfg.ObjectID == "" || d.cfg.ObjectID == "<id>" {
		return rec.ID
	}
	return d.cfg.ObjectID
}

// ExpandComment substitutes the recognized placeholders into the operator's
// comment template.
func ExpandComment(template string, rec *decode.Record) string {
	return strings.NewReplacer(
		"<freq>", rec.FreqLabel,
		"<id>", rec.ID,
		"<vel_v>", fmt.Sprintf("%.1fm/s", rec.VelV),
		"<type>", rec.Type.String(),
	).Replace(template)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
