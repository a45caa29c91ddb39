package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/volunteer-slot-sync/internal/app"   // application assembly
	"github.com/iliyamo/volunteer-slot-sync/internal/queue" // slot.updated consumer
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.Bootstrap(ctx) // load .env, config and optional backends
	defer a.Close()

	if a.Queue.ConsumerEnabled {
		c := &queue.Consumer{URL: a.Queue.URL, LogDir: a.Queue.LogDir, Logger: a.Logger}
		go func() {
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error("slot consumer stopped", "err", err)
			}
		}()
	}

	addr := ":" + a.Config.Port
	a.Logger.Info("listening", "addr", addr, "env", a.Config.Env)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Echo.Start(addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.Echo.Shutdown(shutdownCtx)
}
