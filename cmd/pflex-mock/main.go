// Command pflex-mock runs a simulated PFlex controller speaking TCS.
//
// It serves the full TCS command vocabulary over TCP so clients can be
// developed and tested without an arm. All clients share one robot state.
//
// Usage:
//
//	pflex-mock [flags]
//
// Flags:
//
//	-config string        YAML configuration file (initial state, delays)
//	-port int             Listen port (default 10100)
//	-power                Start with high power on (default true)
//	-rail                 Simulate a linear rail (default true)
//	-eom-delay duration   waitForEOM reply delay (default 500ms)
//	-metrics-addr string  Serve Prometheus metrics on this address (e.g. ":9100")
//	-protocol-log string  File path for protocol event logging (CBOR format)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//
// Flags given on the command line override values from the config file.
//
// Examples:
//
//	# Start with defaults on port 10100
//	pflex-mock
//
//	# Start powered off, without a rail, and expose metrics
//	pflex-mock -power=false -rail=false -metrics-addr :9100
//
//	# Start from a config file and capture all traffic
//	pflex-mock -config cell1.yaml -protocol-log /tmp/cell1.tcslog
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pflex-robotics/tcs-go/internal/mockrobot"
	tcslog "github.com/pflex-robotics/tcs-go/pkg/log"
	"github.com/pflex-robotics/tcs-go/pkg/metrics"
)

var (
	configFile  = flag.String("config", "", "YAML configuration file (initial state, delays)")
	port        = flag.Int("port", 10100, "Listen port")
	power       = flag.Bool("power", true, "Start with high power on")
	rail        = flag.Bool("rail", true, "Simulate a linear rail")
	eomDelay    = flag.Duration("eom-delay", mockrobot.DefaultWaitForEOMDelay, "waitForEOM reply delay")
	metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. \":9100\")")
	protocolLog = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	flag.Parse()

	logger := setupLogging(*logLevel)

	if err := run(logger); err != nil {
		logger.Error("mock robot failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	config.Slog = logger

	var fileLogger *tcslog.FileLogger
	if *protocolLog != "" {
		fileLogger, err = tcslog.NewFileLogger(*protocolLog)
		if err != nil {
			return fmt.Errorf("open protocol log: %w", err)
		}
		defer fileLogger.Close()
		config.Logger = fileLogger
		logger.Info("protocol logging enabled", "file", *protocolLog)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	config.Metrics, err = metrics.NewServerMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	robot, err := mockrobot.New(config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := robot.Start(ctx); err != nil {
		return err
	}
	logger.Info("initial state", "state", config.Initial.String())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return robot.Stop()
	})

	if fileLogger != nil {
		g.Go(func() error {
			return flushLoop(gctx, fileLogger, logger)
		})
	}

	if *metricsAddr != "" {
		server := &http.Server{
			Addr:              *metricsAddr,
			Handler:           metricsHandler(registry),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", *metricsAddr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// loadConfig reads the config file, if any, then applies explicitly set
// flags on top of it.
func loadConfig() (mockrobot.Config, error) {
	config := mockrobot.DefaultConfig()
	if *configFile != "" {
		var err error
		config, err = mockrobot.LoadConfig(*configFile)
		if err != nil {
			return mockrobot.Config{}, err
		}
	}

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["port"] || *configFile == "" {
		config.Address = fmt.Sprintf(":%d", *port)
	}
	if set["power"] {
		config.Initial.Power = *power
	}
	if set["rail"] {
		config.Initial.Rail = *rail
	}
	if set["eom-delay"] {
		config.WaitForEOMDelay = *eomDelay
	}

	return config, config.Validate()
}

// flushLoop pushes buffered protocol events to disk so the capture can be
// inspected while the daemon runs.
func flushLoop(ctx context.Context, fileLogger *tcslog.FileLogger, logger *slog.Logger) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := fileLogger.Flush(); err != nil {
				logger.Warn("protocol log flush failed", "error", err)
			}
			if n := fileLogger.Dropped(); n > 0 {
				logger.Debug("protocol events dropped", "count", n)
			}
		}
	}
}

func metricsHandler(registry *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

func setupLogging(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
