package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Frame is one realtime message: an event name plus its JSON payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Transport is a bidirectional frame stream to the realtime endpoint.
// The connection manager prefers the full-duplex websocket transport and
// falls back to long-polling, transparently to its callers.
type Transport interface {
	ReadFrame() (Frame, error)
	WriteFrame(Frame) error
	Close() error
	Name() string
}

// DialFunc establishes a transport. Replaceable in tests.
type DialFunc func(rawURL string) (Transport, error)

// dialTransport negotiates the transport: websocket first, polling when
// the websocket dial is refused.
func dialTransport(rawURL string) (Transport, error) {
	wsErr := error(nil)
	if wsURL, err := toWebSocketURL(rawURL); err == nil {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err == nil {
			conn.SetPongHandler(func(string) error { return nil })
			return &wsTransport{conn: conn}, nil
		}
		wsErr = err
	} else {
		wsErr = err
	}

	pollURL, err := toHTTPURL(rawURL)
	if err != nil {
		return nil, errors.Join(wsErr, err)
	}
	t := newPollingTransport(pollURL)
	if err := t.probe(); err != nil {
		t.Close()
		return nil, errors.Join(wsErr, err)
	}
	log.Printf("[realtime] websocket unavailable (%v), using polling transport", wsErr)
	return t, nil
}

type wsTransport struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (t *wsTransport) ReadFrame() (Frame, error) {
	var f Frame
	if err := t.conn.ReadJSON(&f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

func (t *wsTransport) WriteFrame(f Frame) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return t.conn.WriteJSON(f)
}

func (t *wsTransport) Close() error { return t.conn.Close() }

func (t *wsTransport) Name() string { return "websocket" }

// pollingTransport reads frames one long-poll GET at a time and sends them
// with POSTs. A client-generated session id correlates both directions.
type pollingTransport struct {
	base   string
	sid    string
	client *http.Client
	ctx    context.Context
	cancel context.CancelFunc
}

func newPollingTransport(base string) *pollingTransport {
	ctx, cancel := context.WithCancel(context.Background())
	return &pollingTransport{
		base:   base,
		sid:    uuid.New().String(),
		client: &http.Client{},
		ctx:    ctx,
		cancel: cancel,
	}
}

func (t *pollingTransport) endpoint() string {
	sep := "?"
	if strings.Contains(t.base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%stransport=polling&sid=%s", t.base, sep, t.sid)
}

func (t *pollingTransport) probe() error {
	req, err := http.NewRequestWithContext(t.ctx, http.MethodOptions, t.endpoint(), nil)
	if err != nil {
		return err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("polling endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (t *pollingTransport) ReadFrame() (Frame, error) {
	for {
		req, err := http.NewRequestWithContext(t.ctx, http.MethodGet, t.endpoint(), nil)
		if err != nil {
			return Frame{}, err
		}
		resp, err := t.client.Do(req)
		if err != nil {
			return Frame{}, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return Frame{}, err
		}
		if resp.StatusCode != http.StatusOK {
			return Frame{}, fmt.Errorf("poll returned %d", resp.StatusCode)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			continue // poll window expired without a frame
		}
		var f Frame
		if err := json.Unmarshal(body, &f); err != nil {
			return Frame{}, err
		}
		return f, nil
	}
}

func (t *pollingTransport) WriteFrame(f Frame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(t.ctx, http.MethodPost, t.endpoint(), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("poll send returned %d", resp.StatusCode)
	}
	return nil
}

func (t *pollingTransport) Close() error {
	t.cancel()
	return nil
}

func (t *pollingTransport) Name() string { return "polling" }

func toWebSocketURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported realtime scheme %q", u.Scheme)
	}
	return u.String(), nil
}

func toHTTPURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "https":
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported realtime scheme %q", u.Scheme)
	}
	return u.String(), nil
}
