package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/webshopd/shopnotify/internal/domain"
)

// AuthError is a terminal connect-time rejection. Retrying a connection
// refused for bad credentials would spin uselessly, so it is never retried
// automatically.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("connection rejected: %s", e.Message)
}

// ReconnectPolicy governs automatic retry after an unexpected disconnect.
type ReconnectPolicy struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		InitialDelay: 1000 * time.Millisecond,
		MaxDelay:     5000 * time.Millisecond,
		MaxAttempts:  5,
	}
}

// Client maintains exactly one authenticated realtime connection and a
// publish/subscribe surface over it. Registered listeners survive
// transient network loss; they are cleared only by Disconnect.
type Client struct {
	URL    string
	Policy ReconnectPolicy
	Dial   DialFunc

	mu        sync.Mutex
	transport Transport
	state     domain.ConnectionState
	lastErr   error
	attempts  int
	sessionID string
	token     string
	gen       int
	stop      chan struct{}

	registry *listenerRegistry

	subMu     sync.Mutex
	stateSubs []func(domain.ConnectionStatus)
}

func NewClient(url string) *Client {
	return &Client{
		URL:      url,
		Policy:   DefaultReconnectPolicy(),
		registry: newListenerRegistry(),
	}
}

// Connect opens the authenticated connection. Idempotent: if a live
// connection or an in-flight attempt already exists it returns without
// creating a second transport. The token travels in the connection-time
// auth frame, never in the URL.
func (c *Client) Connect(token string) error {
	c.mu.Lock()
	switch c.state {
	case domain.Connected, domain.Connecting, domain.Reconnecting:
		c.mu.Unlock()
		return nil
	}
	c.state = domain.Connecting
	c.token = token
	c.lastErr = nil
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.stop = make(chan struct{})
	c.mu.Unlock()
	c.notifyState()
	log.Printf("[realtime] connecting to %s", c.URL)

	t, sid, err := c.establish(token)
	if err != nil {
		var authErr *AuthError
		terminal := errors.As(err, &authErr)
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return err
		}
		c.lastErr = err
		if terminal {
			c.state = domain.Failed
		} else {
			c.state = domain.Disconnected
		}
		c.mu.Unlock()
		c.notifyState()
		if terminal {
			log.Printf("[realtime] connection rejected: %v", err)
			c.registry.dispatch(domain.EventConnectError, errorData(authErr.Message))
		} else {
			log.Printf("[realtime] connect failed: %v", err)
		}
		return err
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		_ = t.Close()
		return nil
	}
	c.transport = t
	c.state = domain.Connected
	c.sessionID = sid
	c.mu.Unlock()
	c.notifyState()
	log.Printf("[realtime] connected via %s, session %s", t.Name(), sid)
	c.registry.dispatch(domain.EventConnect, nil)

	go c.readLoop(t, gen)
	return nil
}

// On registers handler for event. Registering before a connection exists
// is a caller error and fails with ErrNotConnected; nothing is buffered
// silently. The returned Listener removes exactly this registration.
func (c *Client) On(event string, handler Handler) (*Listener, error) {
	c.mu.Lock()
	live := c.state == domain.Connected || c.state == domain.Reconnecting
	c.mu.Unlock()
	if !live {
		return nil, domain.ErrNotConnected
	}
	return c.registry.add(event, handler), nil
}

// Off removes the given listeners for event, or all of them when none are
// given.
func (c *Client) Off(event string, listeners ...*Listener) {
	c.registry.remove(event, listeners...)
}

// Emit sends payload under event. While not Connected it fails with
// ErrNotConnected and the payload is dropped; there is no implicit
// queueing, callers needing durability buffer themselves.
func (c *Client) Emit(event string, payload any) error {
	c.mu.Lock()
	if c.state != domain.Connected || c.transport == nil {
		c.mu.Unlock()
		return domain.ErrNotConnected
	}
	t := c.transport
	c.mu.Unlock()

	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event, err)
		}
		data = b
	}
	if err := t.WriteFrame(Frame{Event: event, Data: data}); err != nil {
		return &domain.TransportError{Op: "write", Err: err}
	}
	return nil
}

// JoinRoom subscribes this session to a server-side room.
func (c *Client) JoinRoom(room string) error {
	return c.Emit(domain.EventJoinRoom, map[string]string{"room": room})
}

// LeaveRoom unsubscribes this session from a server-side room.
func (c *Client) LeaveRoom(room string) error {
	return c.Emit(domain.EventLeaveRoom, map[string]string{"room": room})
}

// Disconnect tears the session down: removes all registered handlers,
// closes the transport, preempts any pending reconnect timer and resets
// state to Disconnected. Called once per logical session teardown; absent
// that call the connection is intentionally kept alive.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	t := c.transport
	c.transport = nil
	c.state = domain.Disconnected
	c.sessionID = ""
	c.attempts = 0
	c.lastErr = nil
	c.token = ""
	c.mu.Unlock()

	c.registry.clear()
	if t != nil {
		_ = t.Close()
		log.Printf("[realtime] disconnected")
	}
	c.notifyState()
}

// Status returns a snapshot of the connection.
func (c *Client) Status() domain.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.ConnectionStatus{
		State:     c.state,
		LastError: c.lastErr,
		Attempts:  c.attempts,
		SessionID: c.sessionID,
	}
}

// OnStateChange subscribes fn to state transitions. Unlike On, state
// observation is allowed before any connection exists so indicators can
// watch the whole lifecycle.
func (c *Client) OnStateChange(fn func(domain.ConnectionStatus)) {
	c.subMu.Lock()
	c.stateSubs = append(c.stateSubs, fn)
	c.subMu.Unlock()
}

func (c *Client) notifyState() {
	status := c.Status()
	c.subMu.Lock()
	subs := make([]func(domain.ConnectionStatus), len(c.stateSubs))
	copy(subs, c.stateSubs)
	c.subMu.Unlock()
	for _, fn := range subs {
		fn(status)
	}
}

// establish dials a transport and runs the auth handshake: the first
// outbound frame carries the token, the server answers with connect (and
// a session id) or connect_error.
func (c *Client) establish(token string) (Transport, string, error) {
	dial := c.Dial
	if dial == nil {
		dial = dialTransport
	}
	t, err := dial(c.URL)
	if err != nil {
		return nil, "", &domain.TransportError{Op: "dial", Err: err}
	}

	auth, _ := json.Marshal(map[string]string{"token": token})
	if err := t.WriteFrame(Frame{Event: "auth", Data: auth}); err != nil {
		_ = t.Close()
		return nil, "", &domain.TransportError{Op: "auth", Err: err}
	}

	f, err := t.ReadFrame()
	if err != nil {
		_ = t.Close()
		return nil, "", &domain.TransportError{Op: "handshake", Err: err}
	}
	switch f.Event {
	case domain.EventConnect:
		var ack struct {
			SID string `json:"sid"`
		}
		_ = json.Unmarshal(f.Data, &ack)
		return t, ack.SID, nil
	case domain.EventConnectError:
		_ = t.Close()
		var reason struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(f.Data, &reason)
		if reason.Message == "" {
			reason.Message = "authentication failed"
		}
		return nil, "", &AuthError{Message: reason.Message}
	default:
		_ = t.Close()
		return nil, "", &domain.TransportError{Op: "handshake", Err: fmt.Errorf("unexpected frame %q", f.Event)}
	}
}

func (c *Client) readLoop(t Transport, gen int) {
	for {
		f, err := t.ReadFrame()
		if err != nil {
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			c.transport = nil
			c.sessionID = ""
			c.state = domain.Reconnecting
			c.lastErr = &domain.TransportError{Op: "read", Err: err}
			stop := c.stop
			c.mu.Unlock()
			_ = t.Close()
			c.notifyState()
			log.Printf("[realtime] connection lost: %v", err)
			c.registry.dispatch(domain.EventDisconnect, errorData("transport error"))
			c.reconnect(gen, stop)
			return
		}
		c.registry.dispatch(f.Event, f.Data)
	}
}

// reconnect retries with delays growing from the initial delay to the
// ceiling, for at most MaxAttempts attempts, then marks the connection
// Failed. Failures inside the loop are swallowed; only exhaustion (or a
// terminal auth rejection) is surfaced. Disconnect preempts the wait.
func (c *Client) reconnect(gen int, stop chan struct{}) {
	delay := c.Policy.InitialDelay
	for attempt := 1; attempt <= c.Policy.MaxAttempts; attempt++ {
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		c.attempts = attempt
		token := c.token
		c.mu.Unlock()
		c.notifyState()
		c.registry.dispatch(domain.EventReconnectAttempt, attemptData(attempt))

		select {
		case <-stop:
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > c.Policy.MaxDelay {
			delay = c.Policy.MaxDelay
		}

		t, sid, err := c.establish(token)
		if err != nil {
			var authErr *AuthError
			if errors.As(err, &authErr) {
				c.mu.Lock()
				if c.gen != gen {
					c.mu.Unlock()
					return
				}
				c.state = domain.Failed
				c.lastErr = err
				c.mu.Unlock()
				c.notifyState()
				log.Printf("[realtime] reconnect rejected: %v", err)
				c.registry.dispatch(domain.EventConnectError, errorData(authErr.Message))
				return
			}
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			c.lastErr = err
			c.mu.Unlock()
			log.Printf("[realtime] reconnect attempt %d failed: %v", attempt, err)
			c.registry.dispatch(domain.EventReconnectError, errorData(err.Error()))
			continue
		}

		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			_ = t.Close()
			return
		}
		c.transport = t
		c.state = domain.Connected
		c.sessionID = sid
		c.mu.Unlock()
		c.notifyState()
		log.Printf("[realtime] reconnected after %d attempt(s)", attempt)
		c.registry.dispatch(domain.EventReconnect, attemptData(attempt))
		c.registry.dispatch(domain.EventConnect, nil)
		go c.readLoop(t, gen)
		return
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.state = domain.Failed
	c.mu.Unlock()
	c.notifyState()
	log.Printf("[realtime] giving up after %d reconnect attempts", c.Policy.MaxAttempts)
	c.registry.dispatch(domain.EventReconnectFailed, nil)
}

func attemptData(attempt int) json.RawMessage {
	b, _ := json.Marshal(map[string]int{"attempt": attempt})
	return b
}

func errorData(message string) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"message": message})
	return b
}
