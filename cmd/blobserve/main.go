// Command blobserve serves the regular files of one directory over HTTP.
//
// Usage:
//
//	blobserve --path <DIR> [--listen <HOST:PORT>]
//	blobserve -p <DIR> [-l <HOST:PORT>]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/blobserve"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "blobserve: %v\n", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.logLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("server failed", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop is called explicitly above
	}
}

// run binds the listen address, prints the banner to stdout and serves until
// ctx is canceled or the server fails.
func run(ctx context.Context, cfg config, logger *slog.Logger, stdout io.Writer) error {
	res := blobserve.New(cfg.path, blobserve.WithLogger(logger))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.listen.String())
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.listen, err)
	}

	fmt.Fprintf(stdout, "Listening on http://%s, serving %s\n", ln.Addr(), cfg.path)

	srv := &http.Server{ //nolint:gosec // no timeout policy; slow clients may hold connections
		Handler:  res,
		ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	return serve(ctx, srv, ln, logger)
}

// serve runs srv on ln and shuts it down gracefully once ctx ends.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
