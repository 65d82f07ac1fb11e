package push

import (
	"log"
	"sync"

	"github.com/webshopd/shopnotify/internal/domain"
)

// Capabilities is the one-time platform probe. Every push operation
// consults it first and short-circuits to a safe "unavailable" result
// instead of failing at scattered call sites.
type Capabilities struct {
	PushSupported          bool
	NotificationsSupported bool
}

// ProbeCapabilities inspects the configuration once at startup. Push needs
// a relay to subscribe against; notifications need at least one sink able
// to display them.
func ProbeCapabilities(cfg *domain.Config, cfgMu *sync.RWMutex, hasNotifier bool) Capabilities {
	cfgMu.RLock()
	relayURL := cfg.Main.PushRelayURL
	cfgMu.RUnlock()

	caps := Capabilities{
		PushSupported:          relayURL != "",
		NotificationsSupported: hasNotifier,
	}
	if !caps.PushSupported {
		log.Printf("[push] no push relay configured, push notifications unavailable")
	}
	if !caps.NotificationsSupported {
		log.Printf("[push] no notifier configured, notifications unavailable")
	}
	return caps
}
