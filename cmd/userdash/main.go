package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	userdash "github.com/goliatone/go-userdash/pkg/dashboard"
	"github.com/goliatone/go-userdash/pkg/logging"
	"github.com/goliatone/go-userdash/pkg/metrics"
)

type globals struct {
	Config    string `type:"path" env:"USERDASH_CONFIG" help:"YAML config file layered over the defaults."`
	LogLevel  string `default:"info" env:"USERDASH_LOG_LEVEL" enum:"trace,debug,info,warn,error" help:"Log level."`
	LogPretty bool   `env:"USERDASH_LOG_PRETTY" help:"Human readable console logs."`
	Offline   bool   `env:"USERDASH_OFFLINE" help:"Serve demo users instead of calling the users endpoint."`
}

type cli struct {
	globals

	Serve    serveCmd    `cmd:"" default:"withargs" help:"Run the dashboard web server."`
	Snapshot snapshotCmd `cmd:"" help:"Log in, resolve one tab and print it as JSON."`
}

type serveCmd struct {
	Addr            string        `default:":8080" env:"USERDASH_ADDR" help:"Dashboard listen address."`
	MetricsAddr     string        `default:":9090" env:"USERDASH_METRICS_ADDR" help:"Prometheus listen address; empty disables it."`
	Transport       string        `default:"http" enum:"http,fiber" env:"USERDASH_TRANSPORT" help:"HTTP stack: net/http with gorilla/mux, or fiber through go-router."`
	BasePath        string        `env:"USERDASH_BASE_PATH" help:"Mount every route below this prefix."`
	ShutdownTimeout time.Duration `default:"10s" help:"Grace period for in-flight requests."`
}

type snapshotCmd struct {
	Contact string `required:"" help:"Email used to log in."`
	Secret  string `required:"" env:"USERDASH_SECRET" help:"Password used to log in."`
	Tab     string `default:"overview" help:"Tab to resolve (overview, sales, activity, users)."`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "userdash: load .env: %v\n", err)
	}
	var app cli
	ctx := kong.Parse(&app,
		kong.Name("userdash"),
		kong.Description("User dashboard with a cached query layer over the users directory."),
		kong.UsageOnError(),
	)
	err := ctx.Run(&app.globals)
	ctx.FatalIfErrorf(err)
}

func (g *globals) load() (userdash.Config, zerolog.Logger, error) {
	logger := logging.Setup(g.LogLevel, g.LogPretty)
	cfg := userdash.DefaultConfig()
	if g.Config != "" {
		loaded, err := userdash.LoadConfig(g.Config)
		if err != nil {
			return cfg, logger, err
		}
		cfg = loaded
	}
	if g.Offline {
		cfg.Offline = true
	}
	return cfg, logger, cfg.Validate()
}

func (cmd *serveCmd) Run(g *globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	sink := metrics.New()
	app, err := userdash.New(cfg,
		userdash.WithTelemetry(sink),
		userdash.WithLogger(logger),
		userdash.WithBasePath(cmd.BasePath),
	)
	if err != nil {
		return err
	}
	app.Start(ctx)

	var metricsSrv *http.Server
	if cmd.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", sink.Handler())
		metricsSrv = &http.Server{Addr: cmd.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info().Str("addr", cmd.MetricsAddr).Msg("metrics listener starting")
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics listener failed")
			}
		}()
	}

	var shutdown func(context.Context) error
	errs := make(chan error, 1)
	switch cmd.Transport {
	case "fiber":
		server := router.NewFiberAdapter()
		if err := userdash.RegisterRoutes[*fiber.App](app, server.Router()); err != nil {
			return err
		}
		go func() { errs <- server.Serve(cmd.Addr) }()
		shutdown = server.Shutdown
	default:
		srv := &http.Server{
			Addr:              cmd.Addr,
			Handler:           app.HTTPHandler(sink.Middleware),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() { errs <- srv.ListenAndServe() }()
		shutdown = srv.Shutdown
	}
	logger.Info().Str("addr", cmd.Addr).Str("transport", cmd.Transport).Bool("offline", cfg.Offline).Msg("userdash listening")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("userdash: serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cmd.ShutdownTimeout)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics shutdown error")
		}
	}
	logger.Info().Msg("graceful shutdown complete")
	return nil
}

func (cmd *snapshotCmd) Run(g *globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	app, err := userdash.New(cfg, userdash.WithLogger(logger))
	if err != nil {
		return err
	}
	view, err := app.Snapshot(context.Background(), cmd.Contact, cmd.Secret, cmd.Tab)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(view)
}
