// Command kvs-server listens on a TCP address and serves the wire
// protocol defined in internal/protocol against a single engine instance.
// The accept loop itself lives in internal/server; this file only wires
// flags, the engine, and the optional metrics listener together.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/nilotpal/bitforge/internal/metrics"
	"github.com/nilotpal/bitforge/internal/server"
	"github.com/nilotpal/bitforge/pkg/kv"
	"github.com/nilotpal/bitforge/pkg/logger"
	"github.com/nilotpal/bitforge/pkg/options"
)

func main() {
	addr := flag.String("addr", options.DefaultAddr, "IP:PORT to listen on")
	engineKind := flag.String("engine", string(options.KindBitcask), "engine backend: kvs | sled")
	metricsAddr := flag.String("metrics-addr", "", "optional IP:PORT to serve Prometheus metrics on")
	dataDir := flag.String("data-dir", "", "directory to store segments in (defaults to the current working directory)")
	flag.Parse()

	log := logger.New("kvs-server")

	dir := *dataDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			log.Fatalw("failed to determine working directory", "error", err)
		}
		dir = cwd
	}

	o := options.New(
		options.WithAddr(*addr),
		options.WithEngine(options.EngineKind(*engineKind)),
		options.WithMetricsAddr(*metricsAddr),
		options.WithDataDir(dir),
	)

	registry := prometheus.NewRegistry()
	recorder := metrics.New(registry)

	engine, err := kv.NewWithMetrics(context.Background(), log, o, recorder)
	if err != nil {
		log.Fatalw("failed to open engine", "error", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", o.Addr)
	if err != nil {
		log.Fatalw("failed to listen", "addr", o.Addr, "error", err)
	}
	log.Infow("listening", "addr", o.Addr, "engine", o.Engine)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return server.Serve(gctx, listener, engine, log)
	})

	if o.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsServer := &http.Server{Addr: o.MetricsAddr, Handler: mux}

		group.Go(func() error {
			log.Infow("serving metrics", "addr", o.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		group.Go(func() error {
			<-gctx.Done()
			return metricsServer.Close()
		})
	}

	group.Go(func() error {
		<-gctx.Done()
		return listener.Close()
	})

	if err := group.Wait(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Errorw("server stopped with error", "error", err)
		os.Exit(1)
	}
}
