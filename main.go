package litepool

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func Main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	level, _ := cfg.Level()
	cfg.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	srv, err := NewServer(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		cfg.logger.Info("shutting down")
	case err = <-errCh:
		if errors.Is(err, ErrServerClosed) {
			err = nil
		}
	}

	if closeErr := srv.Close(); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

// parseConfig loads the -config file, if any, then applies every flag that
// was set on the command line, including ones set to a zero value.
func parseConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("litepool", flag.ContinueOnError)
	var (
		configFile  = fs.String("config", "", "config file path (YAML/JSON)")
		addr        = fs.String("addr", "", "listen address, e.g. 127.0.0.1:8080")
		workers     = fs.Uint("workers", 0, "number of pool workers")
		root        = fs.String("root", "", "directory static files are served from")
		sleepDelay  = fs.Duration("sleep-delay", 0, "delay of the /sleep route")
		dbPath      = fs.String("db", "", "sqlite access log path")
		metricsAddr = fs.String("metrics-addr", "", "address of the /metrics endpoint")
		logLevel    = fs.String("log-level", "", "debug, info, warn or error")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if *configFile != "" {
		loaded, err := LoadConfig(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "workers":
			cfg.Workers = *workers
		case "root":
			cfg.Root = *root
		case "sleep-delay":
			cfg.SleepDelay = *sleepDelay
		case "db":
			cfg.DBPath = *dbPath
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
