package factory

import (
	"fmt"

	"github.com/mikey/llm-dm-relay/internal/adapters/httpapi"
	"github.com/mikey/llm-dm-relay/internal/adapters/smtp"
	"github.com/mikey/llm-dm-relay/internal/config"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/mikey/llm-dm-relay/internal/ports"
	"github.com/mikey/llm-dm-relay/internal/whitelist"
	"go.uber.org/zap"
)

// ListenerFactory creates the relay's ingress listeners based on configuration
type ListenerFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.RelayService
}

// NewListenerFactory creates a new listener factory
func NewListenerFactory(cfg *config.Config, logger *zap.Logger, service *core.RelayService) *ListenerFactory {
	return &ListenerFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateListeners returns the HTTP API and, when enabled, the SMTP ingress
func (f *ListenerFactory) CreateListeners() ([]ports.Listener, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	handler := httpapi.NewHandler(f.service, f.logger.Named("http"))
	listeners := []ports.Listener{httpapi.NewServer(handler, serverCfg, f.logger.Named("http"))}

	smtpCfg := f.cfg.GetSMTP()
	if smtpCfg.Enabled {
		checker := whitelist.NewChecker(smtpCfg.AcceptedDomains, f.logger.Named("smtp"))
		listeners = append(listeners, smtp.NewServer(f.service, checker, smtpCfg, serverCfg.RequestTimeout, f.logger.Named("smtp")))
	}

	return listeners, nil
}
