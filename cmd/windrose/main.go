package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"windrose/internal/api"
	"windrose/pkg/buildings"
	"windrose/pkg/cache"
	"windrose/pkg/compass"
	"windrose/pkg/config"
	"windrose/pkg/geo"
	"windrose/pkg/heading"
	"windrose/pkg/layout"
	"windrose/pkg/locate"
	"windrose/pkg/logging"
	"windrose/pkg/probe"
	"windrose/pkg/request"
	"windrose/pkg/tracker"
	"windrose/pkg/version"
)

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", "configs/windrose.yaml", "Path to config file")
	mockSensor = flag.Bool("mock", false, "Drive sessions from a simulated sweeping sensor instead of client orientation events")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := run(context.Background(), *configPath, *mockSensor); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, mockSensor bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// .env is optional; environment overrides empty config fields.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Windrose started", "version", version.Version)

	tr := tracker.New()
	respCache := cache.NewMemory(cfg.Upstream.CacheTTL.Std())
	client := request.New(request.ClientConfig{
		Retries:   cfg.Upstream.Retries,
		Timeout:   cfg.Upstream.Timeout.Std(),
		BaseDelay: cfg.Upstream.Backoff.BaseDelay.Std(),
		MaxDelay:  cfg.Upstream.Backoff.MaxDelay.Std(),
	}, respCache, tr)

	provider := buildings.New(client, cfg.Upstream.URL)
	resolver := newResolver(cfg, client)

	verifyStartup(ctx, cfg, client)

	engine := layout.New(cfg.Compass.MarkerSpacing, cfg.Compass.PlaceholderLabels)
	estCfg := heading.Config{
		HistorySize:      cfg.Compass.HistorySize,
		ResampleInterval: cfg.Compass.ResampleInterval.Std(),
	}

	mgr := compass.NewManager()
	defer mgr.CloseAll()

	streamH := api.NewStreamHandler(provider, resolver, mgr, engine, estCfg,
		cfg.Compass.FrameInterval.Std(), cfg.Upstream.DefaultRadius)
	if mockSensor {
		slog.Info("Mock sensor enabled, ignoring client orientation events")
		streamH.UseMockSensor(0, 15, 100*time.Millisecond)
	}

	srv := api.NewServer(
		cfg.Server.Address,
		api.NewBuildingsHandler(provider, cfg.Upstream.DefaultRadius),
		api.NewLayoutHandler(provider, engine, cfg.Upstream.DefaultRadius),
		streamH,
		api.NewStatsHandler(tr, mgr),
		cancel,
	)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		slog.Info("Signal received, shutting down", "signal", sig)
	case <-ctx.Done():
		slog.Info("Shutdown requested")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("Windrose stopped")
	return nil
}

// newResolver picks the geolocation provider from config.
func newResolver(cfg *config.Config, client *request.Client) *locate.Resolver {
	fallback := geo.Point{Lat: cfg.Locate.Fallback.Lat, Lon: cfg.Locate.Fallback.Lng}
	locCfg := locate.Config{
		Timeout:  cfg.Locate.Timeout.Std(),
		MaxAge:   cfg.Locate.MaxFixAge.Std(),
		Fallback: fallback,
	}

	switch cfg.Locate.Provider {
	case "static":
		return locate.NewResolver(locate.StaticLocator{Point: fallback}, locCfg)
	case "ip", "":
		return locate.NewResolver(locate.NewHTTPLocator(client, cfg.Locate.URL), locCfg)
	default:
		slog.Warn("Unknown locate provider, using static fallback", "provider", cfg.Locate.Provider)
		return locate.NewResolver(locate.StaticLocator{Point: fallback}, locCfg)
	}
}

// verifyStartup runs non-critical reachability checks so misconfiguration
// shows up in the log at boot rather than on the first user query.
func verifyStartup(ctx context.Context, cfg *config.Config, client *request.Client) {
	probes := []probe.Probe{
		{
			Name: "upstream-configured",
			Check: func(context.Context) error {
				if cfg.Upstream.URL == "" {
					return fmt.Errorf("upstream.url is empty")
				}
				return nil
			},
			Critical: false,
		},
	}

	if cfg.Locate.Provider == "ip" && cfg.Locate.URL != "" {
		probes = append(probes, probe.Probe{
			Name: "geoip-reachable",
			Check: func(ctx context.Context) error {
				_, err := client.Get(ctx, cfg.Locate.URL, "")
				return err
			},
		})
	}

	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		slog.Error("Critical startup checks failed", "error", err)
	}
}
