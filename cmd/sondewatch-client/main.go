package main

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/sondewatch/client/internal/client"
	"github.com/sondewatch/client/internal/client/config"
	"github.com/sondewatch/client/internal/client/decode"
	"github.com/sondewatch/client/internal/client/gps"
	"github.com/sondewatch/client/internal/client/scan"
	"github.com/sondewatch/client/internal/client/storage"
	"github.com/sondewatch/client/internal/client/upload"
	"github.com/sondewatch/client/pkg/log"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	app, err := client.Setup()
	if err != nil {
		log.Error("setup failed", zap.Error(err))
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-app.ExitSignal
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	searchCfg := app.Conf.Search().C()
	sdrCfg := app.Conf.Sdr().C()

	outcome, err := locateSonde(ctx, app.Flags, searchCfg, sdrCfg)
	if err != nil {
		if errors.Is(err, scan.ErrScanToolFailed) {
			log.Error("rtl_power call failed, cannot continue", zap.Error(err))
			return 1
		}

		// Cancelled during the search
		return 0
	}

	if outcome == nil {
		// Expected terminal outcome, not an operational fault
		log.Warn("no sondes detected, exiting")
		return 0
	}

	log.Info("starting decoding",
		zap.String("type", outcome.Type.String()),
		zap.Float64("freq_mhz", outcome.FrequencyHz/1e6),
	)

	queue := decode.NewFrameQueue()

	aprsCfg := app.Conf.Aprs().C()
	dispatcher := upload.NewDispatcher(queue, aprsCfg)
	if aprsCfg.Enabled {
		dispatcher.WithAprs(upload.NewAprsClient(aprsCfg))
	}
	if habitatCfg := app.Conf.Habitat().C(); habitatCfg.Enabled {
		dispatcher.WithHabitat(upload.NewHabitatClient(habitatCfg))
	}
	if path := app.Conf.Storage().C().Path; path != "" {
		store := storage.NewSqliteStore(path)
		defer store.Close()
		dispatcher.WithStore(store)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()

	supervisor := decode.NewSupervisor(sdrCfg, gps.NewHTTPProvider(app.Conf.Gps().C()), queue)
	if err := supervisor.Run(ctx, outcome.FrequencyHz, outcome.Type); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("decoder pipeline ended", zap.Error(err))
	}

	// Stop the dispatcher and wait for it to drain out
	cancel()
	wg.Wait()

	return 0
}

// locateSonde runs the band search, or probes a single operator-given
// frequency when the scan bypass flag is set.
func locateSonde(ctx context.Context, flags config.CLIFlags, searchCfg config.SearchConfig, sdrCfg config.SdrConfig) (*scan.Outcome, error) {
	detector := scan.NewDetector(sdrCfg)

	if flags.FrequencyMHz > 0 {
		freqHz := flags.FrequencyMHz * 1e6
		if t := detector.Classify(ctx, freqHz); t.Detected() {
			return &scan.Outcome{FrequencyHz: freqHz, Type: t}, nil
		}
		return nil, ctx.Err()
	}

	controller := scan.NewController(scan.NewSampler(searchCfg), detector, searchCfg)
	return controller.Run(ctx)
}
