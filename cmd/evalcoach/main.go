package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"evalcoach/internal/assist"
	"evalcoach/internal/config"
	"evalcoach/internal/logging"
	"evalcoach/internal/orchestrator"
	"evalcoach/internal/server"
	"evalcoach/internal/storage"
)

var version = "0.1.0"

type serveFlags struct {
	addr     string
	dbPath   string
	logLevel string
}

func main() {
	var flags serveFlags

	root := &cobra.Command{
		Use:   "evalcoach",
		Short: "업무 기록 기반 성과평가 초안/코칭 서비스",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags)
		},
	}
	for _, fs := range []*cobra.Command{root, serveCmd} {
		fs.Flags().StringVar(&flags.addr, "addr", "", "listen address (overrides config)")
		fs.Flags().StringVar(&flags.dbPath, "db", "", "sqlite database path (overrides config)")
		fs.Flags().StringVar(&flags.logLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("evalcoach %s\n", version)
		},
	}

	root.AddCommand(serveCmd, versionCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(flags serveFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}

	logging.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logger := logging.NewComponentLogger("main")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := orchestrator.NewMetrics("evalcoach", registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	store, err := storage.New(cfg.DBPath, logging.NewComponentLogger("storage"))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	svc, err := assist.NewService(
		cfg.GeminiClient(),
		cfg.OpenAIClient(),
		cfg.Orchestrator(),
		metrics,
		logging.NewComponentLogger("assist"),
	)
	if err != nil {
		return fmt.Errorf("build assist service: %w", err)
	}
	if !svc.Configured() {
		logger.Warn("no provider API key configured; AI endpoints will return an error")
	}

	srv := server.New(server.Config{
		Addr:           cfg.Addr,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
	}, svc, store, registry, logging.NewComponentLogger("server"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
