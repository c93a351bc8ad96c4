package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"volumeio/pkg/config"
	"volumeio/pkg/loader"
)

func main() {
	configPath := flag.String("config", "volumeio.yaml", "YAML configuration file (optional)")
	dataType := flag.String("type", "", "Storage type for decoded volumes: uint8, uint16, int16, int32, float32 (default: file's own)")
	workers := flag.Int("workers", 0, "Number of volumes decoded concurrently (default: from config)")
	useOffsets := flag.Bool("use-offsets", false, "Place MGH volumes at their stored centre instead of the origin")
	stats := flag.Bool("stats", false, "Print summary statistics of each volume")
	slicesDir := flag.String("extract-slices", "", "Directory to save JPEG slices along all axes")
	metricsAddr := flag.String("metrics-addr", "", "Address to expose Prometheus metrics, e.g. :9090")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] volume.fre|volume.mgh|volume.mgz ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// flags given on the command line win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "type":
			cfg.Decode.DataType = *dataType
		case "workers":
			cfg.Decode.Workers = *workers
		case "use-offsets":
			cfg.Decode.UseOffsets = *useOffsets
		case "stats":
			cfg.Output.Stats = *stats
		case "extract-slices":
			cfg.Output.SlicesDir = *slicesDir
		case "metrics-addr":
			cfg.Metrics.ListenAddress = *metricsAddr
		case "verbose":
			cfg.Output.Verbose = *verbose
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Output.Verbose)
	logger = log.With(logger, "run", uuid.NewString())

	var metrics *loader.Metrics
	if cfg.Metrics.ListenAddress != "" {
		reg := prometheus.NewRegistry()
		metrics = loader.NewMetrics(reg)
		serveMetrics(cfg.Metrics.ListenAddress, reg, logger)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Println("================================")
	fmt.Println("VOLUMEIO: FREE FORMAT AND MGH/MGZ VOLUME DECODER")
	fmt.Println("================================")

	start := time.Now()
	results, err := decodeAll(ctx, flag.Args(), cfg, logger, metrics, os.Stdout)
	for _, r := range results {
		if r != nil {
			printResult(os.Stdout, r, cfg.Output.Stats)
		}
	}
	if err != nil {
		level.Error(logger).Log("msg", "decode failed", "err", err)
		os.Exit(1)
	}
	fmt.Printf("\nDecoded %d volume(s) in %.2f seconds\n", len(results), time.Since(start).Seconds())
}

func newLogger(verbose bool) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	logger = log.With(logger, "caller", log.DefaultCaller)
	if verbose {
		return level.NewFilter(logger, level.AllowDebug())
	}
	return level.NewFilter(logger, level.AllowInfo())
}

func serveMetrics(addr string, reg *prometheus.Registry, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		level.Info(logger).Log("msg", "starting metrics server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "metrics server failed", "err", err)
		}
	}()
}
