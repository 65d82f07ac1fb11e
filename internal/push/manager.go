package push

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/webshopd/shopnotify/internal/domain"
)

// Registrar is the narrow slice of the relay the manager needs: await
// readiness, create a channel, release one.
type Registrar interface {
	Ready() <-chan struct{}
	Register(ctx context.Context, serverKey string) (endpoint, channelID string, err error)
	Unregister(channelID string) error
}

// Manager drives the end-to-end push subscription handshake: readiness,
// permission, create-or-reuse, backend sync. It owns no connection itself;
// the relay and the backend are collaborators.
type Manager struct {
	Config      *domain.Config
	ConfigMutex *sync.RWMutex
	SaveConfig  func() error
	Relay       Registrar
	Backend     *BackendClient
	Prompter    Prompter
	Caps        Capabilities
}

func NewManager(cfg *domain.Config, cfgMu *sync.RWMutex, save func() error, relay Registrar, backend *BackendClient, prompter Prompter, caps Capabilities) *Manager {
	return &Manager{
		Config:      cfg,
		ConfigMutex: cfgMu,
		SaveConfig:  save,
		Relay:       relay,
		Backend:     backend,
		Prompter:    prompter,
		Caps:        caps,
	}
}

// Subscribe negotiates the push subscription and syncs it with the
// backend. Denied or dismissed permission yields a nil record and nil
// error so callers can degrade. A backend sync failure is returned along
// with the record: the local subscription stays intact and the caller owns
// the retry decision.
func (m *Manager) Subscribe(ctx context.Context, token string) (*domain.SubscriptionRecord, error) {
	if !m.Caps.PushSupported {
		return nil, domain.ErrUnsupportedPlatform
	}

	select {
	case <-m.Relay.Ready():
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if perm := m.Prompter.RequestPermission(); perm != PermissionGranted {
		log.Printf("[push] notification permission %s, skipping subscription", perm)
		return nil, nil
	}

	m.ConfigMutex.RLock()
	sub := m.Config.Subscription
	serverKey := m.Config.Main.VAPIDPublicKey
	m.ConfigMutex.RUnlock()

	if sub == nil || sub.Endpoint == "" {
		created, err := m.createSubscription(ctx, serverKey)
		if err != nil {
			return nil, err
		}
		sub = created
	} else {
		log.Printf("[push] reusing existing subscription %s", sub.Endpoint)
	}

	record := sub.Record()
	if err := m.Backend.SyncSubscription(ctx, record, token); err != nil {
		log.Printf("[push] backend sync failed, local subscription kept: %v", err)
		return record, err
	}
	log.Printf("[push] subscription synced with backend")
	return record, nil
}

func (m *Manager) createSubscription(ctx context.Context, serverKey string) (*domain.StoredSubscription, error) {
	if serverKey == "" {
		return nil, fmt.Errorf("no vapid public key configured")
	}
	if err := ValidateServerKey(serverKey); err != nil {
		return nil, err
	}

	p256dh, privateKey, auth, err := GenerateSubscriptionKeys()
	if err != nil {
		return nil, fmt.Errorf("generate subscription keys: %w", err)
	}
	endpoint, channelID, err := m.Relay.Register(ctx, serverKey)
	if err != nil {
		return nil, fmt.Errorf("relay register: %w", err)
	}

	sub := &domain.StoredSubscription{
		Endpoint:   endpoint,
		P256DH:     p256dh,
		Auth:       auth,
		PrivateKey: privateKey,
		ChannelID:  channelID,
	}
	m.ConfigMutex.Lock()
	m.Config.Subscription = sub
	_ = m.SaveConfig()
	m.ConfigMutex.Unlock()
	log.Printf("[push] subscribed, endpoint %s", endpoint)
	return sub, nil
}

// SyncSubscription re-sends the current record to the backend; the retry
// path after Subscribe returned a BackendSyncError.
func (m *Manager) SyncSubscription(ctx context.Context, token string) error {
	m.ConfigMutex.RLock()
	sub := m.Config.Subscription
	m.ConfigMutex.RUnlock()
	if sub == nil || sub.Endpoint == "" {
		return fmt.Errorf("no subscription to sync")
	}
	return m.Backend.SyncSubscription(ctx, sub.Record(), token)
}

// Unsubscribe tears the subscription down on both sides: relay channel
// release, then server-side deletion. Either may fail independently; both
// failures are logged and swallowed, because failing loudly at logout time
// would block an unrelated user action.
func (m *Manager) Unsubscribe(ctx context.Context, token string) {
	if !m.Caps.PushSupported {
		return
	}
	m.ConfigMutex.RLock()
	sub := m.Config.Subscription
	m.ConfigMutex.RUnlock()
	if sub == nil {
		return
	}

	if sub.ChannelID != "" {
		if err := m.Relay.Unregister(sub.ChannelID); err != nil {
			log.Printf("[push] relay unregister failed: %v", err)
		}
	}
	if err := m.Backend.DeleteSubscription(ctx, token); err != nil {
		log.Printf("[push] backend delete failed: %v", err)
	}

	m.ConfigMutex.Lock()
	m.Config.Subscription = nil
	_ = m.SaveConfig()
	m.ConfigMutex.Unlock()
	log.Printf("[push] unsubscribed")
}

// IsSubscribed reports whether a live subscription exists. Never errors:
// unsupported platforms simply report false.
func (m *Manager) IsSubscribed() bool {
	if !m.Caps.PushSupported {
		return false
	}
	m.ConfigMutex.RLock()
	defer m.ConfigMutex.RUnlock()
	return m.Config.Subscription != nil && m.Config.Subscription.Endpoint != ""
}
