package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	nebulaconfig "github.com/Niraka/nebula/internal/config"
	"github.com/Niraka/nebula/internal/logging"
	"github.com/Niraka/nebula/internal/observability"
	"github.com/Niraka/nebula/schedule"
	"github.com/Niraka/nebula/schedule/framehistory"
	"github.com/Niraka/nebula/scripting"
	"github.com/Niraka/nebula/transport/control"
	"github.com/Niraka/nebula/transport/wsbroadcast"
)

var (
	flagConfigPath    string
	flagAddr          string
	flagScriptPaths   []string
	flagHistoryDepth  int
	flagShutdownGrace time.Duration
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler as an HTTP service",
		RunE:  runServe,
	}

	cmd.Flags().StringVar(&flagConfigPath, "config", "", "Path to a YAML scheduler config; required")
	cmd.Flags().StringVar(&flagAddr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringArrayVar(&flagScriptPaths, "script", nil, "Path to a JavaScript item; may be repeated")
	cmd.Flags().IntVar(&flagHistoryDepth, "history-depth", 120, "Frames of interpolation history to keep per script item")
	cmd.Flags().DurationVar(&flagShutdownGrace, "shutdown-grace", 10*time.Second, "Time allowed for a graceful shutdown")
	cmd.MarkFlagRequired("config")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := nebulaconfig.Load(afero.NewOsFs(), flagConfigPath)
	if err != nil {
		return err
	}

	tracingCfg := observability.TracingConfigFromEnv()
	tracingCfg.MasterRate = cfg.MasterRate
	shutdownTracing, err := observability.InitTracing(context.Background(), tracingCfg, logger)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, logger)
	tracer := otel.Tracer(tracingCfg.ServiceName)

	collector, err := observability.NewSchedulerCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}

	eng := schedule.New(cfg,
		schedule.WithLogger(logger),
		schedule.WithFrameObserver(func(data schedule.ExecutionData) {
			collector.ObserveExecutionData(data)

			_, span := observability.StartFrameSpan(context.Background(), tracer, data)
			span.End()
		}),
	)

	bridge := observability.NewMetricsBridge(collector, eng)
	eng.AddListener(bridge)

	histories := make([]*framehistory.History, 0, len(flagScriptPaths))
	for _, path := range flagScriptPaths {
		source, err := afero.ReadFile(afero.NewOsFs(), path)
		if err != nil {
			return err
		}
		item, err := scripting.New(string(source))
		if err != nil {
			return err
		}

		history := framehistory.New(flagHistoryDepth)
		histories = append(histories, history)
		observed := bridge.Observe(framehistory.Observe(item, history))

		eng.AddItem(observed, cfg.MasterRate)
		bridge.Refresh()
	}

	hub := wsbroadcast.New(wsbroadcast.WithLogger(logger))
	eng.AddListener(hub)

	ctrl := control.New(eng, control.WithLogger(logger), control.WithCollector(collector))
	eng.AddItem(ctrl.Watcher(), schedule.Unlimited)
	bridge.Refresh()

	mux := http.NewServeMux()
	mux.Handle("/", ctrl.Handler())
	mux.Handle("/ws", hub)

	httpServer := &http.Server{Addr: flagAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		eng.Start()
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(ctx, "control plane listening", logging.String("addr", flagAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error(context.Background(), "http server failed", logging.String("error", err.Error()))
		}
	}

	ctrl.RequestStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), flagShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "http server shutdown did not complete cleanly", logging.String("error", err.Error()))
	}

	select {
	case <-engineDone:
	case <-shutdownCtx.Done():
		logger.Warn(context.Background(), "scheduler did not stop within the shutdown grace period")
	}

	for i, h := range histories {
		logger.Info(context.Background(), "script item interpolation summary",
			logging.Int("item", i),
			logging.Any("average", h.Average()),
			logging.Any("max", h.Max()),
		)
	}

	return nil
}
