package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset_ledger/internal/app"

	"github.com/spf13/pflag"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("❌ Asset ledger failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("asset-ledger", pflag.ContinueOnError)
	var opts app.Options
	flags.StringVarP(&opts.ConfigPath, "config", "c", "configs/config.yaml", "path to the YAML config file")
	flags.StringVar(&opts.EnvFile, "env-file", ".env", "optional KEY=VALUE file loaded before the config")
	flags.StringVar(&opts.Addr, "addr", "", "HTTP listen address (overrides server.addr)")
	flags.StringVar(&opts.DBPath, "db", "", "SQLite database path (overrides storage.path)")
	pprofAddr := flags.String("pprof", "", "serve pprof on this address, e.g. localhost:6060")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// 1. Pprof Server (for performance profiling)
	if *pprofAddr != "" {
		go func() {
			slog.Info("🕵️ Pprof server started", slog.String("addr", *pprofAddr))
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				slog.Error("Pprof server failed", slog.Any("error", err))
			}
		}()
	}

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(ctx, opts); err != nil {
		bootstrap.Close()
		return fmt.Errorf("bootstrapping failed: %w", err)
	}
	defer bootstrap.Close()

	// 4. HTTP API
	errCh := make(chan error, 1)
	go func() {
		slog.Info("✅ API server started", slog.String("addr", bootstrap.Config.Server.Addr))
		if err := bootstrap.Server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("✨ Asset ledger fully operational. Press Ctrl+C to exit.")

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api server: %w", err)
		}
	}

	slog.Info("👋 Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return bootstrap.Server.Shutdown(shutdownCtx)
}
