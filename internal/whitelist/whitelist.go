// Package whitelist decides which recipient domains the SMTP ingress accepts mail for.
package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker checks recipient addresses against the accepted domains
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new domain checker. An empty list accepts every domain.
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make(map[string]struct{}, len(domains))
	names := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.ToLower(strings.TrimSpace(domain))
		if d == "" {
			continue
		}
		if _, dup := normalized[d]; !dup {
			normalized[d] = struct{}{}
			names = append(names, d)
		}
	}

	if len(names) > 0 && logger != nil {
		logger.Info("Initialized accepted domain checker", zap.Strings("domains", names))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// SplitAddress splits user@domain, lowercasing the domain
func SplitAddress(address string) (local, domain string, ok bool) {
	address = strings.Trim(strings.TrimSpace(address), "<>")
	at := strings.LastIndexByte(address, '@')
	if at <= 0 || at == len(address)-1 {
		return "", "", false
	}
	return address[:at], strings.ToLower(address[at+1:]), true
}

// IsAccepted reports whether mail for address may be accepted
func (c *Checker) IsAccepted(address string) bool {
	_, domain, ok := SplitAddress(address)
	if !ok {
		return false
	}
	if len(c.domains) == 0 {
		return true
	}

	if _, found := c.domains[domain]; found {
		return true
	}
	if c.logger != nil {
		c.logger.Debug("Recipient domain not accepted",
			zap.String("domain", domain),
			zap.String("recipient", address))
	}
	return false
}
