package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/dasmlab/polyglot/pkg/app"
	"github.com/dasmlab/polyglot/pkg/config"
	"github.com/dasmlab/polyglot/pkg/server"
	"github.com/dasmlab/polyglot/pkg/service"
)

const cleanupInterval = 30 * time.Second

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	v := viper.New()
	fs := pflag.NewFlagSet("polyglot-server", pflag.ExitOnError)
	if err := config.BindFlags(v, fs); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	_ = fs.Parse(os.Args[1:])
	configFile, _ := fs.GetString("config")

	cfg, err := config.Load(v, configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	logger.WithFields(logrus.Fields{
		"grpc_port":       cfg.Server.GRPCPort,
		"http_port":       cfg.Server.HTTPPort,
		"llm_enabled":     cfg.LLM.Enabled,
		"llm_model":       cfg.LLM.Model,
		"fallback_engine": cfg.Fallback.Engine,
		"detector":        cfg.Detector.Engine,
		"log_level":       logger.GetLevel().String(),
	}).Info("Starting Polyglot translation server")

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build translation service")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	logger.Info("Checking backend health...")
	if ready := a.Service.CheckReady(ctx); !ready.Ready {
		logger.WithField("backends", ready.Backends).Warn("No backend is healthy, but continuing anyway")
		logger.Warn("Server will start, but translation requests may fail until a backend is ready")
	} else {
		logger.WithField("backends", ready.Backends).Info("Backend health check passed")
	}
	cancel()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"port": cfg.Server.GRPCPort,
		}).Fatal("Failed to listen on port")
	}

	opts := []grpc.ServerOption{
		grpc.Creds(insecure.NewCredentials()),
		// Clients ping every 30s.
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             15 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     5 * time.Minute,
			MaxConnectionAge:      30 * time.Minute,
			MaxConnectionAgeGrace: 5 * time.Second,
			Time:                  30 * time.Second,
			Timeout:               10 * time.Second,
		}),
	}
	s := grpc.NewServer(opts...)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(service.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	service.RegisterGRPC(s, a.Service)
	reflection.Register(s)

	httpServer := server.NewHTTPServer(a.Service, logger, cfg.Server.HTTPPort)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go a.RunCleanup(cleanupCtx, cleanupInterval)
	logger.WithFields(logrus.Fields{
		"cleanup_interval": cleanupInterval.String(),
		"session_max_idle": cfg.Sessions.MaxIdle.String(),
		"job_max_age":      cfg.Jobs.MaxAge.String(),
	}).Info("Started cleanup goroutine")

	errChan := make(chan error, 2)
	go func() {
		logger.WithFields(logrus.Fields{
			"port": cfg.Server.GRPCPort,
		}).Info("gRPC server listening")
		if err := s.Serve(lis); err != nil {
			errChan <- fmt.Errorf("failed to serve gRPC: %w", err)
		}
	}()
	go func() {
		if err := httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.WithError(err).Fatal("Server error")
	case sig := <-sigChan:
		logger.WithFields(logrus.Fields{
			"signal": sig.String(),
		}).Info("Received signal, shutting down gracefully...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.WithError(err).Warn("HTTP server shutdown failed")
		}

		stopped := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
			logger.Info("Server stopped gracefully")
		case <-ctx.Done():
			logger.Warn("Graceful shutdown timeout, forcing stop...")
			s.Stop()
		}
	}
}
