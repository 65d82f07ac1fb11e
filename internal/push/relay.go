package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/webshopd/shopnotify/internal/domain"
)

const (
	relayRedialDelay  = 5 * time.Second
	relayKeepAlive    = 10 * time.Minute
	registerTimeout   = 30 * time.Second
	notificationQueue = 16
)

type registerResult struct {
	endpoint string
	status   int
}

// RelayClient owns the persistent connection to the push relay. It speaks
// the hello/register/unregister/notification/ack protocol, redials on loss
// and hands inbound deliveries to the background receiver through the
// Notifications channel. Pushes keep arriving here regardless of the
// realtime socket's state.
type RelayClient struct {
	cfg        *domain.Config
	cfgMu      *sync.RWMutex
	saveConfig func() error

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan registerResult

	notifications chan domain.NotificationMessage
	ready         chan struct{}
	readyOnce     sync.Once
	stop          chan struct{}
	stopOnce      sync.Once
}

func NewRelayClient(cfg *domain.Config, cfgMu *sync.RWMutex, saveConfig func() error) *RelayClient {
	return &RelayClient{
		cfg:           cfg,
		cfgMu:         cfgMu,
		saveConfig:    saveConfig,
		pending:       make(map[string]chan registerResult),
		notifications: make(chan domain.NotificationMessage, notificationQueue),
		ready:         make(chan struct{}),
		stop:          make(chan struct{}),
	}
}

// Start runs the connect/read/redial loop in the background.
func (r *RelayClient) Start() {
	go func() {
		for {
			select {
			case <-r.stop:
				r.closeConn()
				return
			default:
			}

			if err := r.dial(); err != nil {
				log.Printf("[relay] dial failed: %v", err)
				if !r.sleep(relayRedialDelay) {
					return
				}
				continue
			}
			if err := r.sendHello(); err != nil {
				log.Printf("[relay] hello failed: %v", err)
				r.closeConn()
				if !r.sleep(relayRedialDelay) {
					return
				}
				continue
			}

			connDone := make(chan struct{})
			go r.keepAliveLoop(connDone)
			r.readLoop()
			close(connDone)
			r.closeConn()

			select {
			case <-r.stop:
				return
			default:
			}
			log.Printf("[relay] connection lost, redialing in %s", relayRedialDelay)
			if !r.sleep(relayRedialDelay) {
				return
			}
		}
	}()
}

// Ready is closed once the relay has acknowledged the hello handshake.
// Subscription calls must wait for it before registering.
func (r *RelayClient) Ready() <-chan struct{} { return r.ready }

// Notifications delivers inbound push messages to the receiver.
func (r *RelayClient) Notifications() <-chan domain.NotificationMessage {
	return r.notifications
}

// Register creates a relay channel keyed to the application server's
// public key and returns the push endpoint the backend should deliver to.
func (r *RelayClient) Register(ctx context.Context, serverKey string) (endpoint, channelID string, err error) {
	channelID = uuid.New().String()
	result := make(chan registerResult, 1)

	r.mu.Lock()
	if r.conn == nil {
		r.mu.Unlock()
		return "", "", fmt.Errorf("relay not connected")
	}
	r.pending[channelID] = result
	writeErr := r.conn.WriteJSON(domain.RegisterRequest{
		MessageType: string(domain.MessageTypeRegister),
		ChannelID:   channelID,
		Key:         serverKey,
	})
	r.mu.Unlock()

	if writeErr != nil {
		r.dropPending(channelID)
		return "", "", fmt.Errorf("register write failed: %w", writeErr)
	}

	timeout := time.NewTimer(registerTimeout)
	defer timeout.Stop()
	select {
	case res := <-result:
		if res.status != 200 {
			return "", "", fmt.Errorf("relay register returned status %d", res.status)
		}
		return res.endpoint, channelID, nil
	case <-ctx.Done():
		r.dropPending(channelID)
		return "", "", ctx.Err()
	case <-timeout.C:
		r.dropPending(channelID)
		return "", "", fmt.Errorf("relay register timed out")
	case <-r.stop:
		r.dropPending(channelID)
		return "", "", fmt.Errorf("relay shutting down")
	}
}

// Unregister releases a relay channel. Best-effort: the relay drops
// unknown channels on its own eventually.
func (r *RelayClient) Unregister(channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return fmt.Errorf("relay not connected")
	}
	return r.conn.WriteJSON(domain.UnregisterRequest{
		MessageType: string(domain.MessageTypeUnregister),
		ChannelID:   channelID,
	})
}

// Ack confirms a delivered notification so the relay stops redelivering it.
func (r *RelayClient) Ack(channelID, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return fmt.Errorf("relay not connected")
	}
	return r.conn.WriteJSON(domain.AckMessage{
		MessageType: string(domain.MessageTypeAck),
		Updates:     []domain.AckUpdate{{ChannelID: channelID, Version: version}},
	})
}

func (r *RelayClient) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.closeConn()
}

func (r *RelayClient) dial() error {
	r.cfgMu.RLock()
	relayURL := r.cfg.Main.PushRelayURL
	r.cfgMu.RUnlock()
	if relayURL == "" {
		return fmt.Errorf("no push relay configured")
	}
	conn, _, err := websocket.DefaultDialer.Dial(relayURL, nil)
	if err != nil {
		return fmt.Errorf("dial push relay: %w", err)
	}
	conn.SetPongHandler(func(string) error { return nil })
	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	return nil
}

func (r *RelayClient) sendHello() error {
	r.cfgMu.RLock()
	uaid := r.cfg.Main.UAID
	var channelIDs []string
	if sub := r.cfg.Subscription; sub != nil && sub.ChannelID != "" {
		channelIDs = append(channelIDs, sub.ChannelID)
	}
	r.cfgMu.RUnlock()

	hello := domain.HelloRequest{
		Type:       domain.MessageTypeHello,
		UseWebPush: true,
	}
	if uaid != "" {
		hello.UAID = uaid
		hello.ChannelIDs = channelIDs
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return fmt.Errorf("no connection")
	}
	return r.conn.WriteJSON(hello)
}

func (r *RelayClient) readLoop() {
	for {
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()
		if conn == nil {
			return
		}
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var typeCheck struct {
			MessageType string `json:"messageType"`
		}
		if json.Unmarshal(msgBytes, &typeCheck) != nil {
			continue
		}

		switch typeCheck.MessageType {
		case string(domain.MessageTypeHello):
			var resp domain.HelloResponse
			if json.Unmarshal(msgBytes, &resp) == nil {
				r.handleHello(resp)
			}
		case string(domain.MessageTypeRegister):
			var resp domain.RegisterResponse
			if json.Unmarshal(msgBytes, &resp) == nil {
				r.handleRegisterResponse(resp)
			}
		case string(domain.MessageTypeNotification):
			var nm domain.NotificationMessage
			if json.Unmarshal(msgBytes, &nm) == nil {
				select {
				case r.notifications <- nm:
				case <-r.stop:
					return
				}
			}
		}
	}
}

func (r *RelayClient) handleHello(resp domain.HelloResponse) {
	if resp.UAID != "" {
		r.cfgMu.Lock()
		if r.cfg.Main.UAID != resp.UAID {
			r.cfg.Main.UAID = resp.UAID
			_ = r.saveConfig()
			log.Printf("[relay] assigned uaid %s", resp.UAID)
		}
		r.cfgMu.Unlock()
	}
	r.readyOnce.Do(func() { close(r.ready) })
}

func (r *RelayClient) handleRegisterResponse(resp domain.RegisterResponse) {
	r.mu.Lock()
	result, ok := r.pending[resp.ChannelID]
	if ok {
		delete(r.pending, resp.ChannelID)
	}
	r.mu.Unlock()
	if !ok {
		log.Printf("[relay] register response for unknown channel %s", resp.ChannelID)
		return
	}
	result <- registerResult{endpoint: resp.PushEndpoint, status: resp.Status}
}

func (r *RelayClient) keepAliveLoop(connDone chan struct{}) {
	ticker := time.NewTicker(relayKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			conn := r.conn
			var err error
			if conn != nil {
				err = conn.WriteJSON(map[string]any{})
			}
			r.mu.Unlock()
			if conn == nil || err != nil {
				return
			}
		case <-connDone:
			return
		case <-r.stop:
			return
		}
	}
}

func (r *RelayClient) dropPending(channelID string) {
	r.mu.Lock()
	delete(r.pending, channelID)
	r.mu.Unlock()
}

func (r *RelayClient) closeConn() {
	r.mu.Lock()
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
	r.mu.Unlock()
}

func (r *RelayClient) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-r.stop:
		return false
	}
}
