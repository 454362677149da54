package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/sendahq/senda"
	httpadapter "github.com/sendahq/senda/internal/adapters/http"
	"github.com/sendahq/senda/internal/cli"
	"github.com/sendahq/senda/internal/config"
	"github.com/sendahq/senda/internal/logging"
	"github.com/sendahq/senda/pkg/observe"
	"github.com/sendahq/senda/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine as a long-running HTTP service. Configuration comes
from SENDA_* environment variables: the store backend (memory, redis or
postgres), the resume window, the sweep schedule and the listen address.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("addr") {
			cfg.Server.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("flows") {
			cfg.FlowsDir, _ = cmd.Flags().GetString("flows")
		}
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			cfg.Log.Level = "debug"
		}

		level := logging.ParseLevel(cfg.Log.Level)
		logger := logging.New(level)
		if cfg.Log.Format == "json" {
			logger = logging.NewJSON(level)
		}
		slog.SetDefault(logger)

		registry := prometheus.NewRegistry()
		metrics := observe.NewMetrics(registry)

		rt, err := cli.NewRuntime(cfg, logger,
			senda.WithHooks(observe.Merge(metrics.Hooks(), observe.LogHooks(logger))),
		)
		if err != nil {
			logger.Error("startup failed", "err", err)
			os.Exit(1)
		}
		defer rt.Close()

		guardOpts := []session.Option{session.WithLogger(logger)}
		if rt.Locker != nil {
			guardOpts = append(guardOpts, session.WithLocker(rt.Locker))
		}
		guard := session.NewManager(guardOpts...)

		handler := httpadapter.NewHandler(rt.Engine,
			httpadapter.WithGuard(guard),
			httpadapter.WithLogger(logger),
			httpadapter.WithMetrics(registry),
		)

		// Periodic sweep of expired resumption claims.
		if cfg.Resume.SweepSchedule != "" {
			c := cron.New()
			_, err := c.AddFunc(cfg.Resume.SweepSchedule, func() {
				n, err := rt.Engine.Sweep(context.Background())
				if err != nil {
					logger.Error("sweep failed", "err", err)
					return
				}
				if n > 0 {
					logger.Info("swept expired flows", "count", n)
				}
			})
			if err != nil {
				logger.Error("invalid sweep schedule", "schedule", cfg.Resume.SweepSchedule, "err", err)
				os.Exit(1)
			}
			c.Start()
			defer c.Stop()
		}

		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("server listening", "addr", srv.Addr, "store", cfg.Store, "flows", cfg.FlowsDir)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			logger.Error("server error", "err", err)
			os.Exit(1)

		case sig := <-shutdown:
			logger.Info("shutdown started", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("forced close failed", "err", err)
				}
			}
			logger.Info("server stopped")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Listen address (overrides SENDA_ADDR)")
}
