package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-dm-relay/internal/config"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/mikey/llm-dm-relay/internal/logging"
)

// CLIOptions carries the global flags of relayctl
type CLIOptions struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool
}

// LoadCLIConfig loads the config file when one is given, otherwise defaults.
// Flags bound into the returned viper take precedence over both.
func LoadCLIConfig(opts *CLIOptions) (*config.Config, error) {
	if opts.ConfigFile != "" {
		return config.NewWithFile(opts.ConfigFile)
	}
	return config.NewFromViper(config.NewEmptyViper()), nil
}

// BuildCLIContainer creates a dependency injection container for relayctl
// commands that need a classifier
func BuildCLIContainer(opts *CLIOptions, cfg *config.Config) (*dig.Container, error) {
	container := dig.New()

	// Register options and configuration
	if err := container.Provide(func() *CLIOptions { return opts }); err != nil {
		return nil, err
	}
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(opts *CLIOptions) (*zap.Logger, error) {
		return logging.InitConsoleLogger(opts.Verbose, opts.JSONLog)
	}); err != nil {
		return nil, err
	}

	if err := provideCommon(container); err != nil {
		return nil, err
	}

	// Register classification service with no cache
	if err := container.Provide(func(cfg *config.Config, classifier core.IntentClassifier, logger *zap.Logger) (*core.ClassificationService, error) {
		classifierCfg, err := cfg.GetClassifier()
		if err != nil {
			return nil, err
		}
		return core.NewClassificationService(classifier, nil, logger, classifierCfg.Timeout, false, 0), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
