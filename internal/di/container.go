package di

import (
	"context"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-dm-relay/internal/adapters/cache"
	"github.com/mikey/llm-dm-relay/internal/adapters/sealed"
	"github.com/mikey/llm-dm-relay/internal/config"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/mikey/llm-dm-relay/internal/factory"
	"github.com/mikey/llm-dm-relay/internal/logging"
	"github.com/mikey/llm-dm-relay/internal/ports"
	"github.com/mikey/llm-dm-relay/internal/utils"
)

// BuildContainer creates and configures the dependency injection container
// for the relay server. configFile may be empty to search the default locations.
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.NewWithFile(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewListenerFactory); err != nil {
		return nil, err
	}

	// Register store
	if err := container.Provide(func(f *factory.StoreFactory) (core.Store, error) {
		return f.CreateStore(context.Background())
	}); err != nil {
		return nil, err
	}

	// Register clock
	if err := container.Provide(core.SystemClock); err != nil {
		return nil, err
	}

	// Register encryption gateway
	if err := container.Provide(func(cfg *config.Config, store core.Store, logger *zap.Logger) *sealed.Gateway {
		return sealed.NewGateway(store, logger.Named("sealed"), cfg.GetEncryption().MaxPlaintextSize)
	}); err != nil {
		return nil, err
	}

	// Register label cache, nil when disabled
	if err := container.Provide(func(f *factory.CacheFactory) (*cache.MemoryCache, error) {
		return f.CreateLabelCache()
	}); err != nil {
		return nil, err
	}

	// Register classification service
	if err := container.Provide(func(
		cfg *config.Config,
		classifier core.IntentClassifier,
		labelCache *cache.MemoryCache,
		logger *zap.Logger,
	) (*core.ClassificationService, error) {
		classifierCfg, err := cfg.GetClassifier()
		if err != nil {
			return nil, fmt.Errorf("invalid classifier configuration: %w", err)
		}
		var lc core.LabelCache
		if labelCache != nil {
			lc = labelCache
		}
		return core.NewClassificationService(
			classifier,
			lc,
			logger.Named("classifier"),
			classifierCfg.Timeout,
			classifierCfg.CacheEnabled,
			classifierCfg.CacheTTL,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register core services
	if err := container.Provide(func(store core.Store, gateway *sealed.Gateway, clock core.Clock, logger *zap.Logger) *core.Registry {
		return core.NewRegistry(store, gateway, clock, logger.Named("registry"))
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(store core.Store, clock core.Clock, logger *zap.Logger) *core.DrainCoordinator {
		return core.NewDrainCoordinator(store, clock, logger.Named("drain"))
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		registry *core.Registry,
		classifier *core.ClassificationService,
		gateway *sealed.Gateway,
		store core.Store,
		drains *core.DrainCoordinator,
		clock core.Clock,
		logger *zap.Logger,
	) *core.RelayService {
		return core.NewRelayService(registry, classifier, gateway, store, drains, clock, logger.Named("relay"))
	}); err != nil {
		return nil, err
	}

	// Register ingress listeners
	if err := container.Provide(func(f *factory.ListenerFactory) ([]ports.Listener, error) {
		return f.CreateListeners()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCommon registers the text processor and intent classifier
func provideCommon(container *dig.Container) error {
	if err := container.Provide(func(logger *zap.Logger) *utils.TextProcessor {
		return utils.NewTextProcessor(logger.Named("text"))
	}); err != nil {
		return err
	}
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.LLMFactory) (core.IntentClassifier, error) {
		return f.CreateClassifier(context.Background())
	}); err != nil {
		return err
	}
	return nil
}
