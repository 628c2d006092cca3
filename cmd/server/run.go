package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/pokedex-api/internal/config"
	"github.com/Brownie44l1/pokedex-api/internal/fetch"
	"github.com/Brownie44l1/pokedex-api/internal/handlers"
	"github.com/Brownie44l1/pokedex-api/internal/lifecycle"
	"github.com/Brownie44l1/pokedex-api/internal/metrics"
	"github.com/Brownie44l1/pokedex-api/internal/server"
	"github.com/Brownie44l1/pokedex-api/internal/view"
)

func newLifecycle(cfg *config.Config, logger *slog.Logger, load lifecycle.LoadFunc, m *metrics.Metrics) *lifecycle.Lifecycle {
	fetchOpts := []fetch.Option{
		fetch.WithLogger(logger),
		fetch.WithRetries(cfg.Fetch.Retries),
		fetch.WithTimeout(cfg.Fetch.Timeout),
	}
	lcOpts := []lifecycle.Option{lifecycle.WithLogger(logger)}
	if m != nil {
		fetchOpts = append(fetchOpts, fetch.WithBytesCounter(m.DownloadedBytes))
		lcOpts = append(lcOpts, lifecycle.WithReadyHook(func() { m.ModelReady.Set(1) }))
	}

	assets := lifecycle.Assets{
		URL:            cfg.Model.URL,
		CheckpointPath: cfg.CheckpointPath(),
		LabelsFile:     cfg.Model.LabelsFile,
	}
	return lifecycle.New(lifecycle.FetchAndLoad(assets, fetch.New(fetchOpts...), load, logger), lcOpts...)
}

// runSetup performs the initialization phase and exits without serving.
func runSetup(ctx context.Context, cfg *config.Config, logger *slog.Logger, load lifecycle.LoadFunc) error {
	lc := newLifecycle(cfg, logger, load, nil)
	defer lc.Close()

	if err := lc.Run(ctx); err != nil {
		return err
	}
	logger.Info("Setup complete", "checkpoint", cfg.CheckpointPath())
	return nil
}

// serve accepts connections on ln right away and runs the initialization
// phase beside it. /analyze answers 503 until the model is ready, and a
// failed initialization stops the server.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, load lifecycle.LoadFunc, ln net.Listener) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	page, err := view.Load(cfg.Server.IndexFile, logger)
	if err != nil {
		ln.Close()
		return err
	}

	lc := newLifecycle(cfg, logger, load, m)
	defer lc.Close()

	router := server.NewRouter(cfg.Server, handlers.NewHandler(lc, page, m), m, reg, logger)
	srv := server.New(cfg.Server, router, logger)

	g, gctx := errgroup.WithContext(ctx)
	if err := page.Watch(gctx); err != nil {
		logger.Warn("Page changes will not be picked up", "error", err)
	}
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})
	g.Go(func() error {
		return lc.Run(gctx)
	})

	return g.Wait()
}
