// Command napkin-mcp serves the Napkin AI visual tools over MCP on stdio.
//
// Usage:
//
//	NAPKIN_API_KEY=... napkin-mcp
//	napkin-mcp -config napkin-mcp.yaml
//	napkin-mcp -version
//
// stdout carries the protocol stream; logs go to stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	napkinmcp "github.com/ajitpratap0/napkin-mcp-go"
	"github.com/ajitpratap0/napkin-mcp-go/internal/config"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/docs"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/napkin"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/observability"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/server"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/tools"
	"github.com/ajitpratap0/napkin-mcp-go/pkg/transport"
)

// Set at build time
var (
	Version   = napkinmcp.Version
	GitCommit = "unknown"
)

const (
	serverName  = napkinmcp.ServerName
	serverTitle = "Napkin AI"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.LookupEnv)
	stop()
	os.Exit(code)
}

// run returns the process exit code: 0 on a clean shutdown, 1 on a
// configuration or runtime error and 2 on bad flags.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) int {
	fs := flag.NewFlagSet("napkin-mcp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file (default $"+config.ConfigPathEnv+")")
	showVersion := fs.Bool("version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "%s %s (%s)\n", serverName, Version, GitCommit)
		return 0
	}

	cfg, err := config.NewLoader().
		WithConfigPath(*configPath).
		WithLookupEnv(lookupEnv).
		Load()
	if err != nil {
		fmt.Fprintf(stderr, "napkin-mcp: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "napkin-mcp: %v\n", err)
		return 1
	}

	if err := serve(ctx, cfg, logger, stdin, stdout); err != nil {
		logger.WithError(err).Error("Server stopped")
		return 1
	}
	return 0
}

func newLogger(cfg config.LogConfig, stderr io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var logger logging.Logger
	switch {
	case cfg.Backend == "zap":
		if logger, err = logging.NewZapProduction(); err != nil {
			return nil, fmt.Errorf("create zap logger: %w", err)
		}
	case cfg.Format == "json":
		logger = logging.New(stderr, logging.NewJSONFormatter())
	default:
		logger = logging.New(stderr, logging.NewTextFormatter())
	}

	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)
	return logger, nil
}

// serve wires the client, tools and observability and blocks until stdin
// closes or ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, logger logging.Logger, stdin io.Reader, stdout io.Writer) error {
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		m, err := observability.NewMetrics(observability.MetricsConfig{
			ServiceName:       serverName,
			ServiceVersion:    Version,
			Environment:       cfg.Metrics.Environment,
			Addr:              cfg.Metrics.Addr,
			ProcessCollectors: true,
		}, logger)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metrics = m
	}

	var tracing *observability.TracingProvider
	if exporter := observability.ExporterType(cfg.Tracing.Exporter); exporter != observability.ExporterTypeNoop {
		tp, err := observability.NewTracingProvider(ctx, observability.TracingConfig{
			ServiceName:    serverName,
			ServiceVersion: Version,
			Environment:    cfg.Metrics.Environment,
			ExporterType:   exporter,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
			SampleRate:     cfg.Tracing.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Warn("Tracing shutdown failed")
			}
		}()
		tracing = tp
	}

	observer := observability.NewObserver(metrics, tracing)

	opts := []napkin.Option{
		napkin.WithLogger(logger),
		napkin.WithObserver(observer),
		napkin.WithHTTPClient(&http.Client{Transport: observer.Transport(nil)}),
		napkin.WithUserAgent(serverName + "/" + Version),
	}
	if cfg.API.RateLimit > 0 {
		burst := cfg.API.RateBurst
		if burst < 1 {
			burst = 1
		}
		opts = append(opts, napkin.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.API.RateLimit), burst)))
	}

	client, err := napkin.New(cfg.Client(), opts...)
	if err != nil {
		return err
	}

	registry := server.NewToolRegistry()
	if err := tools.Register(registry, client, tools.Options{
		APIKey:         cfg.API.Key,
		DownloadDir:    cfg.Tools.DownloadDir,
		DefaultStyleID: cfg.Tools.DefaultStyleID,
		Logger:         logger,
	}); err != nil {
		return err
	}

	serverOpts := []server.ServerOption{
		server.WithName(serverName),
		server.WithTitle(serverTitle),
		server.WithVersion(Version),
		server.WithInstructions(tools.Instructions),
		server.WithLogger(logger),
		server.WithObserver(observer),
	}
	if cfg.Docs.Dir != "" {
		serverOpts = append(serverOpts, server.WithResources(docs.New(cfg.Docs.Dir, logger)))
	}

	srv := server.New(transport.NewStdioTransport(stdin, stdout, logger), registry, serverOpts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		// The end of input ends the process.
		defer cancel()
		err := srv.Start(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if metrics != nil {
		g.Go(func() error {
			return metrics.Serve(gctx)
		})
	}

	err = g.Wait()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	if stopErr := srv.Stop(stopCtx); stopErr != nil {
		logger.WithError(stopErr).Warn("Server stop failed")
	}

	logger.Info("Server stopped")
	return err
}
