package dispatch

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/webshopd/shopnotify/internal/domain"
	"github.com/webshopd/shopnotify/internal/realtime"
)

// pipeTransport lets tests act as the realtime server.
type pipeTransport struct {
	in        chan realtime.Frame
	out       chan realtime.Frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newPipeTransport() *pipeTransport {
	return &pipeTransport{
		in:     make(chan realtime.Frame, 16),
		out:    make(chan realtime.Frame, 16),
		closed: make(chan struct{}),
	}
}

func (t *pipeTransport) ReadFrame() (realtime.Frame, error) {
	select {
	case f := <-t.in:
		return f, nil
	case <-t.closed:
		return realtime.Frame{}, errors.New("closed")
	}
}

func (t *pipeTransport) WriteFrame(f realtime.Frame) error {
	select {
	case t.out <- f:
		return nil
	case <-t.closed:
		return errors.New("closed")
	}
}

func (t *pipeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *pipeTransport) Name() string { return "pipe" }

func (t *pipeTransport) handshake() {
	<-t.out // auth frame
	data, _ := json.Marshal(map[string]string{"sid": "sid"})
	t.in <- realtime.Frame{Event: domain.EventConnect, Data: data}
}

func (t *pipeTransport) emit(event string, payload any) {
	data, _ := json.Marshal(payload)
	t.in <- realtime.Frame{Event: event, Data: data}
}

// chanSink collects delivered alerts.
type chanSink struct{ alerts chan Alert }

func newChanSink() *chanSink { return &chanSink{alerts: make(chan Alert, 16)} }

func (s *chanSink) Deliver(a Alert) { s.alerts <- a }

func (s *chanSink) next(t *testing.T) Alert {
	t.Helper()
	select {
	case a := <-s.alerts:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("no alert delivered")
		return Alert{}
	}
}

func connectedBridge(t *testing.T) (*Bridge, *pipeTransport, *chanSink) {
	t.Helper()
	tr := newPipeTransport()
	client := realtime.NewClient("ws://backend.test/realtime")
	client.Dial = func(string) (realtime.Transport, error) {
		go tr.handshake()
		return tr, nil
	}
	sink := newChanSink()
	bridge := New(client, sink)
	if err := client.Connect("token"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := bridge.Bind(); err != nil {
		t.Fatalf("bind: %v", err)
	}
	t.Cleanup(client.Disconnect)
	return bridge, tr, sink
}

func TestBindBeforeConnectFails(t *testing.T) {
	client := realtime.NewClient("ws://backend.test/realtime")
	bridge := New(client)
	if err := bridge.Bind(); !errors.Is(err, domain.ErrNotConnected) {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestEventAlerts(t *testing.T) {
	_, tr, sink := connectedBridge(t)

	cases := []struct {
		event    string
		payload  any
		severity domain.NotificationType
		title    string
		body     string
		sticky   bool
		duration time.Duration
	}{
		{
			event:    domain.EventLoginNotification,
			payload:  map[string]string{"message": "New login from Berlin"},
			severity: domain.TypeWarning,
			title:    "New Login Detected",
			body:     "New login from Berlin",
			sticky:   true,
			duration: 10 * time.Second,
		},
		{
			event:    domain.EventOrderUpdate,
			payload:  map[string]string{"message": "Order #7 shipped"},
			severity: domain.TypeSuccess,
			title:    "Order Update",
			body:     "Order #7 shipped",
			duration: 5 * time.Second,
		},
		{
			event:    domain.EventCartUpdate,
			payload:  map[string]string{"message": "Item added"},
			severity: domain.TypeInfo,
			title:    "Cart Updated",
			body:     "Item added",
			duration: 3 * time.Second,
		},
		{
			event:    domain.EventNotification,
			payload:  map[string]string{"title": "Price Drop", "message": "Runner X now $59", "type": "success"},
			severity: domain.TypeSuccess,
			title:    "Price Drop",
			body:     "Runner X now $59",
			duration: 5 * time.Second,
		},
		{
			event:    domain.EventFlashSaleStart,
			payload:  map[string]any{"flashSale": map[string]any{"name": "Summer Clearance", "discount": 30}},
			severity: domain.TypeSuccess,
			title:    "Flash Sale Started!",
			body:     "Summer Clearance - 30% OFF",
			duration: 10 * time.Second,
		},
		{
			event:    domain.EventFlashSaleEnd,
			payload:  map[string]string{"message": "Summer Clearance has ended"},
			severity: domain.TypeInfo,
			title:    "Flash Sale Ended",
			body:     "Summer Clearance has ended",
			duration: 5 * time.Second,
		},
	}

	for _, tc := range cases {
		tr.emit(tc.event, tc.payload)
		got := sink.next(t)
		if got.Severity != tc.severity {
			t.Errorf("%s: severity = %s, want %s", tc.event, got.Severity, tc.severity)
		}
		if got.Title != tc.title {
			t.Errorf("%s: title = %q, want %q", tc.event, got.Title, tc.title)
		}
		if got.Body != tc.body {
			t.Errorf("%s: body = %q, want %q", tc.event, got.Body, tc.body)
		}
		if got.Sticky != tc.sticky {
			t.Errorf("%s: sticky = %v, want %v", tc.event, got.Sticky, tc.sticky)
		}
		if got.Duration != tc.duration {
			t.Errorf("%s: duration = %s, want %s", tc.event, got.Duration, tc.duration)
		}
	}
}

func TestNotificationAlertSeverityFallsBackToInfo(t *testing.T) {
	_, tr, sink := connectedBridge(t)

	tr.emit(domain.EventNotification, map[string]string{"message": "hello", "type": "bogus"})
	got := sink.next(t)
	if got.Severity != domain.TypeInfo {
		t.Fatalf("severity = %s, want info", got.Severity)
	}
	if got.Title != "Notification" {
		t.Fatalf("title = %q, want default", got.Title)
	}
}

func TestBindIsIdempotent(t *testing.T) {
	bridge, tr, sink := connectedBridge(t)

	if err := bridge.Bind(); err != nil {
		t.Fatalf("second bind: %v", err)
	}
	tr.emit(domain.EventCartUpdate, map[string]string{"message": "once"})
	sink.next(t)
	select {
	case a := <-sink.alerts:
		t.Fatalf("double bind delivered twice: %+v", a)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLivenessIndicator(t *testing.T) {
	tr := newPipeTransport()
	dials := 0
	client := realtime.NewClient("ws://backend.test/realtime")
	client.Policy = realtime.ReconnectPolicy{
		InitialDelay: 30 * time.Millisecond,
		MaxDelay:     30 * time.Millisecond,
		MaxAttempts:  2,
	}
	client.Dial = func(string) (realtime.Transport, error) {
		dials++
		if dials > 1 {
			return nil, errors.New("down")
		}
		go tr.handshake()
		return tr, nil
	}
	bridge := New(client)

	if bridge.Live() || bridge.StatusText() != "offline" {
		t.Fatalf("pre-connect indicator = %q", bridge.StatusText())
	}
	if err := client.Connect("token"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !bridge.Live() || bridge.StatusText() != "live" {
		t.Fatalf("connected indicator = %q", bridge.StatusText())
	}

	tr.Close()
	deadline := time.Now().Add(2 * time.Second)
	for bridge.StatusText() != "reconnecting" {
		if time.Now().After(deadline) {
			t.Fatalf("indicator = %q, never showed reconnecting", bridge.StatusText())
		}
		time.Sleep(2 * time.Millisecond)
	}
	// Reconnecting is "temporarily offline", not live.
	if bridge.Live() {
		t.Fatal("Live() = true while reconnecting")
	}

	client.Disconnect()
	if bridge.Live() || bridge.StatusText() != "offline" {
		t.Fatalf("post-disconnect indicator = %q", bridge.StatusText())
	}
}

func TestDisconnectRequiresRebind(t *testing.T) {
	bridge, tr, sink := connectedBridge(t)
	_ = tr

	client := bridge.client
	client.Disconnect()

	// A fresh connection has an empty registry until Bind runs again.
	tr2 := newPipeTransport()
	client.Dial = func(string) (realtime.Transport, error) {
		go tr2.handshake()
		return tr2, nil
	}
	if err := client.Connect("token"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}

	tr2.emit(domain.EventCartUpdate, map[string]string{"message": "unbound"})
	select {
	case a := <-sink.alerts:
		t.Fatalf("alert delivered without rebind: %+v", a)
	case <-time.After(50 * time.Millisecond):
	}

	if err := bridge.Bind(); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	tr2.emit(domain.EventCartUpdate, map[string]string{"message": "bound"})
	got := sink.next(t)
	if got.Body != "bound" {
		t.Fatalf("alert = %+v", got)
	}
}
