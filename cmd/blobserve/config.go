package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/netip"
)

const defaultListen = "127.0.0.1:8888"

type config struct {
	path     string
	listen   netip.AddrPort
	logLevel slog.Level
}

// parseArgs parses the command line. Each long flag has a one-letter alias.
func parseArgs(args []string, output io.Writer) (config, error) {
	var (
		cfg      config
		listen   string
		logLevel string
	)
	fs := flag.NewFlagSet("blobserve", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.path, "path", "", "directory to serve (required)")
	fs.StringVar(&cfg.path, "p", "", "shorthand for -path")
	fs.StringVar(&listen, "listen", defaultListen, "address to listen on")
	fs.StringVar(&listen, "l", defaultListen, "shorthand for -listen")
	fs.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	if fs.NArg() > 0 {
		return config{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if cfg.path == "" {
		return config{}, errors.New("missing required flag --path")
	}
	addr, err := netip.ParseAddrPort(listen)
	if err != nil {
		return config{}, fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	cfg.listen = addr
	if err := cfg.logLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return config{}, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	return cfg, nil
}
