package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/armanthepythonguy/zkOrderbook-hyle/internal/app"
)

func main() {
	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(context.Background()); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Start Sequencer in its own goroutine (The Hotpath Loop)
	go bootstrap.Sequencer.Run(ctx)
	slog.Info("Sequencer (Hotpath) started")

	// 4. HTTP Server
	httpSrv := &http.Server{
		Addr:    bootstrap.Config.Node.ListenAddr,
		Handler: bootstrap.Server.Routes(),
	}

	go func() {
		slog.Info("HTTP server listening", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", slog.Any("error", err))
	}

	// Snapshot on the way out so the next start replays only the tail.
	if err := bootstrap.SaveSnapshot(); err != nil {
		slog.Error("Failed to save snapshot", slog.Any("error", err))
	}

	slog.Info("Node stopped")
}
