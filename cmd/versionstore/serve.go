package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/nainya/versionstore/internal/logger"
	"github.com/nainya/versionstore/internal/metrics"
	"github.com/nainya/versionstore/internal/server"
	"github.com/nainya/versionstore/pkg/registry"
	"github.com/nainya/versionstore/pkg/versioning"
)

var (
	port        int
	metricsPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&port, "port", 0, "gRPC port override")
	serveCmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "Metrics/health port override")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.GRPC.Port = port
	}
	if cmd.Flags().Changed("metrics-port") {
		cfg.Observability.Port = metricsPort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.InitGlobalLogger(logger.Config{
		Level:      cfg.Log.Level,
		Pretty:     cfg.Log.Pretty,
		WithCaller: cfg.Log.Caller,
	})
	log.LogServerStart(cfg.GRPC.Port, cfg.Observability.Port)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(promReg)

	// One store per process, shared by reference
	store := versioning.New()
	svc := server.NewServer(registry.New(store), log, m)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPC.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.GRPC.MaxMessageBytes),
		grpc.MaxSendMsgSize(cfg.GRPC.MaxMessageBytes),
		grpc.UnaryInterceptor(server.GrpcMetricsInterceptor(m, log)),
	)
	server.RegisterVersionStoreServer(grpcServer, svc)
	if cfg.GRPC.Reflection {
		reflection.Register(grpcServer)
	}

	var obs *server.ObservabilityServer
	if cfg.Observability.Enabled {
		obs = server.NewObservabilityServer(cfg.Observability.Port, promReg, log)
		go func() {
			if err := obs.Start(); err != nil {
				log.Error("Observability server stopped").Err(err).Send()
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.LogServerShutdown()
		if obs != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := obs.Shutdown(ctx); err != nil {
				log.Warn("Observability shutdown failed").Err(err).Send()
			}
		}
		grpcServer.GracefulStop()
	}()

	log.LogServerReady(cfg.GRPC.Port)
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}
