// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	dto "github.com/prometheus/client_model/go"

	"github.com/luxfi/namevm"
	"github.com/luxfi/namevm/api/health"
	"github.com/luxfi/namevm/api/server"
)

const shutdownTimeout = 10 * time.Second

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Serves the namevm API",
		RunE:  runFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return Run(ctx, log.NewLogger("namevm"), config)
}

// Run serves the API described by [config] until [ctx] is cancelled.
func Run(ctx context.Context, logger log.Logger, config *Config) error {
	db, err := openDB(config.DBDir)
	if err != nil {
		return err
	}

	registry := metric.NewRegistry()
	if err := errors.Join(
		registry.Register(collectors.NewGoCollector()),
		registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})),
	); err != nil {
		return errors.Join(err, db.Close())
	}

	configBytes, err := config.VMConfigBytes()
	if err != nil {
		return errors.Join(err, db.Close())
	}

	vm := namevm.New(logger)
	if err := vm.Initialize(ctx, db, configBytes, registry); err != nil {
		return errors.Join(err, db.Close())
	}

	err = serve(ctx, logger, config, vm, registry)
	return errors.Join(
		err,
		vm.Shutdown(context.Background()),
		db.Close(),
	)
}

func serve(
	ctx context.Context,
	logger log.Logger,
	config *Config,
	vm *namevm.VM,
	registry metric.Registry,
) error {
	handler, err := vm.NewHandler(config.Authenticator())
	if err != nil {
		return err
	}

	healthChecker, err := health.New(logger, "health", registry)
	if err != nil {
		return err
	}
	healthChecker.Register("namevm", vm)

	listener, err := net.Listen("tcp", config.HTTPAddress)
	if err != nil {
		return err
	}

	srv, err := server.New(
		logger,
		listener,
		config.AllowedOrigins,
		shutdownTimeout,
		registry,
		server.DefaultHTTPConfig,
	)
	if err != nil {
		return errors.Join(err, listener.Close())
	}
	if err := errors.Join(
		srv.AddRoute(handler, "namevm", ""),
		srv.AddRoute(promhttp.HandlerFor(gatherer(registry), promhttp.HandlerOpts{}), "metrics", ""),
		srv.AddRoute(healthChecker, "health", ""),
	); err != nil {
		return errors.Join(err, listener.Close())
	}

	logger.Info("serving namevm API",
		log.String("address", listener.Addr().String()),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := srv.Dispatch()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down API server")
		return srv.Shutdown()
	})
	return g.Wait()
}

// gatherer exposes [registry] in the prometheus exposition format.
func gatherer(registry metric.Registry) prometheus.Gatherer {
	return prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		families, err := registry.Gather()
		return metric.NativeToDTO(families), err
	})
}

func openDB(dir string) (database.Database, error) {
	if dir == "" {
		return memdb.New(), nil
	}
	return badgerdb.New(
		dir,
		nil, // configBytes - use default
		"",  // namespace
		nil, // metrics
	)
}
