package dispatch

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/webshopd/shopnotify/internal/domain"
	"github.com/webshopd/shopnotify/internal/realtime"
)

// Alert is a severity-tagged, time-boxed, human-readable in-app
// notification. Sticky alerts stay until the user acts.
type Alert struct {
	Severity domain.NotificationType
	Title    string
	Body     string
	Duration time.Duration
	Sticky   bool
}

// AlertSink receives alerts for display.
type AlertSink interface {
	Deliver(Alert)
}

// LogSink prints alerts, the default when nothing else is configured.
type LogSink struct{}

func (LogSink) Deliver(a Alert) {
	log.Printf("[dispatch] %s alert %q: %s", a.Severity, a.Title, a.Body)
}

// Bridge translates inbound realtime events into alerts and exposes the
// connection's liveness. It holds no transport concerns of its own.
type Bridge struct {
	client *realtime.Client
	sinks  []AlertSink

	mu     sync.Mutex
	status domain.ConnectionStatus
	bound  bool
}

func New(client *realtime.Client, sinks ...AlertSink) *Bridge {
	if len(sinks) == 0 {
		sinks = []AlertSink{LogSink{}}
	}
	b := &Bridge{client: client, sinks: sinks}
	client.OnStateChange(func(status domain.ConnectionStatus) {
		b.mu.Lock()
		b.status = status
		if status.State == domain.Disconnected {
			// Disconnect cleared the listener registry; the next
			// connection needs a fresh Bind.
			b.bound = false
		}
		b.mu.Unlock()
	})
	return b
}

// Bind registers the fixed set of application events, once per connection
// lifetime. Must be called after the connection exists; before that it
// fails like any other premature registration.
func (b *Bridge) Bind() error {
	b.mu.Lock()
	if b.bound {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	handlers := map[string]func(json.RawMessage) Alert{
		domain.EventLoginNotification: loginAlert,
		domain.EventOrderUpdate:       orderAlert,
		domain.EventCartUpdate:        cartAlert,
		domain.EventNotification:      notificationAlert,
		domain.EventFlashSaleStart:    flashSaleStartAlert,
		domain.EventFlashSaleEnd:      flashSaleEndAlert,
	}
	for event, build := range handlers {
		build := build
		if _, err := b.client.On(event, func(data json.RawMessage) {
			b.deliver(build(data))
		}); err != nil {
			return err
		}
	}

	b.mu.Lock()
	b.bound = true
	b.mu.Unlock()
	return nil
}

// Live is true only while the connection manager reports Connected.
func (b *Bridge) Live() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status.State == domain.Connected
}

// StatusText is the user-facing indicator. Reconnecting is a distinct
// "temporarily offline" state, never collapsed into plain offline.
func (b *Bridge) StatusText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.status.State {
	case domain.Connected:
		return "live"
	case domain.Reconnecting:
		return "reconnecting"
	default:
		return "offline"
	}
}

func (b *Bridge) Status() domain.ConnectionStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *Bridge) deliver(a Alert) {
	for _, sink := range b.sinks {
		sink.Deliver(a)
	}
}

func loginAlert(data json.RawMessage) Alert {
	var p domain.NotificationPayload
	_ = json.Unmarshal(data, &p)
	title := p.Title
	if title == "" {
		title = "New Login Detected"
	}
	return Alert{
		Severity: domain.TypeWarning,
		Title:    title,
		Body:     p.Message,
		Duration: 10 * time.Second,
		Sticky:   true,
	}
}

func orderAlert(data json.RawMessage) Alert {
	var p domain.NotificationPayload
	_ = json.Unmarshal(data, &p)
	return Alert{
		Severity: domain.TypeSuccess,
		Title:    "Order Update",
		Body:     p.Message,
		Duration: 5 * time.Second,
	}
}

func cartAlert(data json.RawMessage) Alert {
	var p domain.NotificationPayload
	_ = json.Unmarshal(data, &p)
	return Alert{
		Severity: domain.TypeInfo,
		Title:    "Cart Updated",
		Body:     p.Message,
		Duration: 3 * time.Second,
	}
}

func notificationAlert(data json.RawMessage) Alert {
	var p domain.NotificationPayload
	_ = json.Unmarshal(data, &p)
	severity := domain.TypeInfo
	switch p.Type {
	case domain.TypeError, domain.TypeWarning, domain.TypeSuccess:
		severity = p.Type
	}
	title := p.Title
	if title == "" {
		title = "Notification"
	}
	return Alert{
		Severity: severity,
		Title:    title,
		Body:     p.Message,
		Duration: 5 * time.Second,
	}
}

func flashSaleStartAlert(data json.RawMessage) Alert {
	var p struct {
		FlashSale struct {
			Name     string  `json:"name"`
			Discount float64 `json:"discount"`
		} `json:"flashSale"`
	}
	_ = json.Unmarshal(data, &p)
	return Alert{
		Severity: domain.TypeSuccess,
		Title:    "Flash Sale Started!",
		Body:     fmt.Sprintf("%s - %g%% OFF", p.FlashSale.Name, p.FlashSale.Discount),
		Duration: 10 * time.Second,
	}
}

func flashSaleEndAlert(data json.RawMessage) Alert {
	var p domain.NotificationPayload
	_ = json.Unmarshal(data, &p)
	return Alert{
		Severity: domain.TypeInfo,
		Title:    "Flash Sale Ended",
		Body:     p.Message,
		Duration: 5 * time.Second,
	}
}
