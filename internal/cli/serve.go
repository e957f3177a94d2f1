package cli

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gl-reconciler/internal/analysis"
	"gl-reconciler/internal/api"
	"gl-reconciler/internal/infrastructure/config"
	"gl-reconciler/internal/infrastructure/logging"
	"gl-reconciler/internal/recon"
)

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port    int
	Verbose bool
}

// ParseServeFlags parses command line flags for the serve command.
func ParseServeFlags() *ServeFlags {
	flags := &ServeFlags{}
	flag.IntVar(&flags.Port, "port", 0, "Port to listen on (overrides config)")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// RunServe runs the API server.
func RunServe(cfg *config.Config, flags *ServeFlags) error {
	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "api")

	tol, err := recon.ParseTolerances(cfg.Reconciliation.RoundingTolerance, cfg.Reconciliation.AmountTolerance)
	if err != nil {
		return err
	}

	apiKey := cfg.GetAPIKey(cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	augmenter := analysis.Select(apiKey, cfg.OpenAI.Model, cfg.Reconciliation.AIBatchSize, logger)
	if apiKey == "" {
		logger.Info("no OpenAI API key configured, using statistical analysis")
	}

	cache := recon.NewReportCache()
	pipeline := recon.NewPipeline(recon.Options{
		Tolerances: &tol,
		Augmenter:  augmenter,
		Cache:      cache,
		Logger:     logger,
	})

	apiCfg := api.DefaultConfig()
	apiCfg.Port = cfg.Server.Port
	if flags.Port != 0 {
		apiCfg.Port = flags.Port
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		apiCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	}

	server := api.NewServer(apiCfg, pipeline, cache, logger)

	// Handle graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("server shutdown error", slog.Any("error", err))
		}
		close(done)
	}()

	// Start server (blocks until shutdown)
	if err := server.Start(); err != nil {
		return err
	}

	<-done
	logger.Info("server stopped")
	return nil
}
