package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/proposal-builder/internal/app"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/server"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load before reading the environment")
	flag.Parse()

	if err := common.LoadEnvFile(*envFile); err != nil {
		slog.Error("failed to load env file", "path", *envFile, "error", err)
		os.Exit(2)
	}
	cfg := common.LoadConfig()
	logger := common.NewLogger(cfg.Log, os.Stdout)
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.New(a.ServerDeps(), logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcHealth := server.NewGRPCHealth(logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCHealthAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCHealthAddr, "error", err)
		os.Exit(1)
	}
	grpcHealth.SetServing(true)

	go func() {
		if err := grpcHealth.Serve(lis); err != nil {
			logger.Error("grpc health serve error", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("proposald listening", "addr", cfg.Server.HTTPAddr, "grpc_health", cfg.Server.GRPCHealthAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	grpcHealth.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcHealth.Stop(shutdownCtx)
}
