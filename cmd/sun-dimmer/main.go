package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pasikonik/sun-dimmer/internal/circuitbreaker"
	"github.com/pasikonik/sun-dimmer/internal/config"
	"github.com/pasikonik/sun-dimmer/internal/controller"
	"github.com/pasikonik/sun-dimmer/internal/curve"
	"github.com/pasikonik/sun-dimmer/internal/device"
	"github.com/pasikonik/sun-dimmer/internal/domain/model"
	"github.com/pasikonik/sun-dimmer/internal/location"
	"github.com/pasikonik/sun-dimmer/internal/logging"
	"github.com/pasikonik/sun-dimmer/internal/notify"
	"github.com/pasikonik/sun-dimmer/internal/state"
	"github.com/pasikonik/sun-dimmer/internal/tracing"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path (default: ~/.config/sun_dimmer/config.yaml)")
		statusFlag = flag.Bool("status", false, "print the saved offset and last brightness, then exit")
		offsetFlag = flag.String("offset", "", "set the user offset in percent points (e.g. +10, -5, 0), then exit")
		logFormat  = flag.String("log-format", "console", "log output format: console or json")
		noColor    = flag.Bool("no-color", false, "disable ANSI colors in console log output")
	)
	flag.Parse()

	cfgPath := *configPath
	if cfgPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintln(os.Stderr, "cannot resolve config path:", err)
			os.Exit(1)
		}
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := buildLogger(*logFormat, cfg.System.LogLevel, !*noColor)
	slog.SetDefault(logger)

	statePath, err := config.DefaultStatePath()
	if err != nil {
		logger.Error("cannot resolve state path", "error", err)
		os.Exit(1)
	}
	store := state.NewStore(statePath, logger)
	if _, err := store.Load(); err != nil {
		logger.Warn("state file unusable, starting from defaults", "error", err, "path", statePath)
	}

	if *statusFlag {
		printStatus(store, cfgPath)
		return
	}
	if *offsetFlag != "" {
		if err := applyOffset(store, *offsetFlag); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	run(cfg, store, cfgPath, logger.With("run_id", uuid.NewString()))
}

func run(cfg *config.Config, store *state.Store, cfgPath string, logger *slog.Logger) {
	logger.Info("starting sun-dimmer",
		"config", cfgPath,
		"state", store.Path(),
		"interval", cfg.System.UpdateInterval(),
		"auto_location", cfg.Location.UseAutoLocation,
		"devices", len(cfg.Devices),
	)

	tracingEndpoint := ""
	if cfg.Tracing.Enabled {
		tracingEndpoint = cfg.Tracing.Endpoint
	}
	shutdownTracing, err := tracing.Init(context.Background(), "sun-dimmer", tracingEndpoint, cfg.Tracing.Insecure)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()
	if cfg.Tracing.Enabled {
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint)
	}

	brightness, err := curve.New(
		cfg.Brightness.MinBrightness,
		cfg.Brightness.MaxBrightness,
		cfg.Brightness.SunDownAlt,
		cfg.Brightness.SunHighAlt,
	)
	if err != nil {
		logger.Error("invalid brightness curve", "error", err)
		os.Exit(1)
	}

	runner := device.NewExecRunner(0)

	notifier := buildNotifier(cfg.Notify, runner, logger)

	controllers, err := device.FromConfig(cfg.Devices, runner)
	if err != nil {
		logger.Error("invalid device configuration", "error", err)
		os.Exit(1)
	}
	devices := device.NewManager(controllers, device.ManagerConfig{
		OnBreakerChange: func(name string, from, to circuitbreaker.State) {
			switch {
			case to == circuitbreaker.StateOpen:
				_ = notifier.Send(context.Background(), notify.Event{
					Kind:  notify.KindDeviceDown,
					Title: "Display unreachable",
					Body:  fmt.Sprintf("%s stopped accepting brightness changes", name),
				})
			case to == circuitbreaker.StateClosed && from != circuitbreaker.StateClosed:
				_ = notifier.Send(context.Background(), notify.Event{
					Kind:  notify.KindDeviceRecovered,
					Title: "Display recovered",
					Body:  fmt.Sprintf("%s is accepting brightness changes again", name),
				})
			}
		},
	}, logger)

	ctrl := controller.New(controller.Config{
		Curve:        brightness,
		Tolerance:    cfg.Brightness.ManualChangeTolerance,
		Interval:     cfg.System.UpdateInterval(),
		ErrorBackoff: cfg.System.ErrorBackoff(),
		LookAhead:    cfg.System.LookAhead(),
	}, buildResolver(cfg.Location, runner, logger), devices, store, notifier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runMetricsServer(gCtx, cfg.Server.MetricsPort, logger)
	})

	g.Go(func() error {
		return ctrl.Run(gCtx)
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("sun-dimmer exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("sun-dimmer shut down gracefully")
}

func buildLogger(format, level string, colors bool) *slog.Logger {
	lvl := logging.ParseLevel(level)
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:       lvl,
			ReplaceAttr: logging.ReplaceLevelAttr,
		}))
	}
	return slog.New(logging.NewConsoleHandler(os.Stdout, lvl, colors))
}

func buildNotifier(cfg config.NotifyConfig, runner device.Runner, logger *slog.Logger) notify.Notifier {
	if !cfg.Enabled {
		return notify.Noop{}
	}
	return notify.NewDeduper(notify.Command{Cmd: cfg.Command, Runner: runner}, cfg.Cooldown(), logger)
}

// buildResolver picks the location strategy: manual coordinates straight
// from the config, or auto detection that falls back from geoclue to an
// IP lookup to the configured coordinates.
func buildResolver(cfg config.LocationConfig, runner device.Runner, logger *slog.Logger) location.Resolver {
	manual := location.Static{Coords: model.Coordinates{
		Latitude:  cfg.ManualLatitude,
		Longitude: cfg.ManualLongitude,
	}}
	if !cfg.UseAutoLocation {
		return manual
	}
	return location.Chain{
		Resolvers: []location.Resolver{
			location.GeoClue{Runner: runner},
			location.IPAPI{Client: &http.Client{Timeout: 10 * time.Second}},
			manual,
		},
		Logger: logger.With("component", "location"),
	}
}

func printStatus(store *state.Store, cfgPath string) {
	snap := store.Snapshot()
	fmt.Printf("user offset:     %+d%%\n", snap.UserOffset)
	fmt.Printf("last brightness: %d%%\n", snap.LastBrightness)
	fmt.Printf("config file:     %s\n", cfgPath)
	fmt.Printf("state file:      %s\n", store.Path())
}

func applyOffset(store *state.Store, raw string) error {
	offset, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid offset %q: expected an integer like +10 or -5", raw)
	}
	if err := store.SetOffset(offset); err != nil {
		return fmt.Errorf("save offset: %w", err)
	}
	fmt.Printf("offset set to %+d%%\n", offset)
	return nil
}

func runMetricsServer(ctx context.Context, port int, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Warn("failed to write health response", "error", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server shutdown error", "error", err)
		}
	}()

	logger.Info("metrics server started", "port", port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
