// Command fakeapi serves the in-memory API with seed data, for running the
// gateway and the CLI without a backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nomis52/reactivities/fakeapi"
	"github.com/nomis52/reactivities/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("listen", ":5000", "Listen address")
	viewer := flag.String("viewer", "bob", "User that requests without a token are made by")
	empty := flag.Bool("empty", false, "Start without seed data")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: *level, Format: "text", Output: "stderr"})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	fake := fakeapi.New(fakeapi.WithViewer(*viewer), fakeapi.WithLogger(logger.Logger))
	if !*empty {
		fakeapi.Seed(fake)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fake,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving fake API", "addr", *addr, "base_url", "http://localhost"+*addr+"/api", "viewer", *viewer)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down fake API")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
