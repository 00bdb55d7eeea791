package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/llm-dm-relay/internal/adapters/cache"
	"github.com/mikey/llm-dm-relay/internal/config"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/mikey/llm-dm-relay/internal/di"
	"github.com/mikey/llm-dm-relay/internal/ports"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	configFile := pflag.StringP("config", "c", "", "Path to config file (default: search /etc/dm-relay, $HOME/.dm-relay, ./configs, .)")
	pflag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	cfg *config.Config,
	logger *zap.Logger,
	listeners []ports.Listener,
	store core.Store,
	classifier core.IntentClassifier,
	labelCache *cache.MemoryCache,
) error {
	defer logger.Sync()

	serverCfg, err := cfg.GetServer()
	if err != nil {
		return err
	}

	started := make([]ports.Listener, 0, len(listeners))
	for _, l := range listeners {
		if err := l.Start(); err != nil {
			logger.Error("Failed to start listener", zap.String("listener", l.Name()), zap.Error(err))
			shutdown(logger, serverCfg.ShutdownTimeout, started, store, classifier, labelCache)
			return err
		}
		started = append(started, l)
	}

	logger.Info("Relay started",
		zap.String("store", cfg.GetStore().Type),
		zap.String("llm_provider", cfg.GetLLM().Provider))

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Shutting down...", zap.String("signal", sig.String()))

	shutdown(logger, serverCfg.ShutdownTimeout, started, store, classifier, labelCache)
	logger.Info("Shutdown complete")
	return nil
}

func shutdown(
	logger *zap.Logger,
	timeout time.Duration,
	listeners []ports.Listener,
	store core.Store,
	classifier core.IntentClassifier,
	labelCache *cache.MemoryCache,
) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop ingress first so no request touches the store after it closes
	for i := len(listeners) - 1; i >= 0; i-- {
		if err := listeners[i].Stop(ctx); err != nil {
			logger.Error("Failed to stop listener", zap.String("listener", listeners[i].Name()), zap.Error(err))
		}
	}

	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close LLM client", zap.Error(err))
		}
	}

	if labelCache != nil {
		labelCache.Stop()
	}

	if err := store.Close(); err != nil {
		logger.Error("Failed to close store", zap.Error(err))
	}
}
