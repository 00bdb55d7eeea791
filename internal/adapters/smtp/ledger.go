package smtp

import (
	"sync"
	"time"
)

// deliveryWindow is how long a delivered (message, tenant) pair is remembered.
// Senders retry a 4xx for hours, well inside this window.
const deliveryWindow = 24 * time.Hour

// ledgerSweepSize is the entry count above which claim drops expired entries
const ledgerSweepSize = 4096

// deliveryLedger remembers which tenants already received a message so that a
// retried or repeated transaction does not buffer it twice. A key is claimed
// before ingest and forgotten again if the ingest fails.
type deliveryLedger struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	seen map[string]time.Time
}

func newDeliveryLedger(ttl time.Duration) *deliveryLedger {
	return &deliveryLedger{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

// claim reports whether key is new and, if so, records it
func (l *deliveryLedger) claim(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expires, ok := l.seen[key]; ok && now.Before(expires) {
		return false
	}
	if len(l.seen) >= ledgerSweepSize {
		for k, expires := range l.seen {
			if !now.Before(expires) {
				delete(l.seen, k)
			}
		}
	}
	l.seen[key] = now.Add(l.ttl)
	return true
}

// forget releases a claim whose delivery failed
func (l *deliveryLedger) forget(key string) {
	l.mu.Lock()
	delete(l.seen, key)
	l.mu.Unlock()
}
