package ports

import "context"

// Listener is an ingress surface of the relay (HTTP API, SMTP)
type Listener interface {
	// Name identifies the listener in logs
	Name() string

	// Start begins serving in the background
	Start() error

	// Stop stops accepting new work and waits for in-flight requests until ctx expires
	Stop(ctx context.Context) error
}
