package worker

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/xakep666/ecego"

	"github.com/webshopd/shopnotify/internal/domain"
	"github.com/webshopd/shopnotify/internal/push"
)

// ControlMessage is a page-to-worker control frame.
type ControlMessage struct {
	Type string `json:"type"`
}

const ControlSkipWaiting = "SKIP_WAITING"

type State int

const (
	StateInstalling State = iota
	StateWaiting
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateWaiting:
		return "waiting"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Acker confirms push deliveries back to the relay.
type Acker interface {
	Ack(channelID, version string) error
}

// Worker is the background receiver: an isolated actor that handles push
// deliveries while the rest of the application may be "closed" (realtime
// socket down). It communicates with the outside only through channels —
// push messages in, display calls out, control messages each way — and
// keeps no state the platform would not survive a restart with.
type Worker struct {
	notifications <-chan domain.NotificationMessage
	control       chan ControlMessage
	acker         Acker
	notifier      Notifier
	windows       WindowManager
	cfg           *domain.Config
	cfgMu         *sync.RWMutex

	// SkipWaitingOnInstall activates the worker immediately instead of
	// waiting for old instances to finish. Faster updates, at the cost of
	// possible mixed-version behavior across clients.
	SkipWaitingOnInstall bool

	mu        sync.Mutex
	state     State
	activated chan struct{}
}

func New(notifications <-chan domain.NotificationMessage, acker Acker, notifier Notifier, windows WindowManager, cfg *domain.Config, cfgMu *sync.RWMutex) *Worker {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if windows == nil {
		windows = LogWindowManager{}
	}
	return &Worker{
		notifications:        notifications,
		control:              make(chan ControlMessage, 4),
		acker:                acker,
		notifier:             notifier,
		windows:              windows,
		cfg:                  cfg,
		cfgMu:                cfgMu,
		SkipWaitingOnInstall: true,
		state:                StateInstalling,
		activated:            make(chan struct{}),
	}
}

// Run executes the worker lifecycle until ctx is done. Install activates
// immediately (skip-waiting on install); a worker configured to wait is
// promoted by a SKIP_WAITING control message.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[worker] installed")
	if !w.SkipWaitingOnInstall {
		w.setState(StateWaiting)
		for w.CurrentState() == StateWaiting {
			select {
			case <-ctx.Done():
				w.setState(StateStopped)
				return
			case msg := <-w.control:
				if msg.Type == ControlSkipWaiting {
					w.activate()
				}
			}
		}
	} else {
		w.activate()
	}

	for {
		select {
		case <-ctx.Done():
			w.setState(StateStopped)
			return
		case msg := <-w.notifications:
			w.handlePush(msg)
		case msg := <-w.control:
			// Already active, nothing waiting to promote.
			log.Printf("[worker] control message %q ignored", msg.Type)
		}
	}
}

func (w *Worker) activate() {
	w.setState(StateActive)
	close(w.activated)
	log.Printf("[worker] activated, claiming clients")
}

// Post delivers a control message to the worker, dropping it if the
// worker is not draining its control queue.
func (w *Worker) Post(msg ControlMessage) {
	select {
	case w.control <- msg:
	default:
		log.Printf("[worker] control queue full, dropped %q", msg.Type)
	}
}

// Activated is closed once the worker takes control.
func (w *Worker) Activated() <-chan struct{} { return w.activated }

func (w *Worker) CurrentState() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// handlePush decrypts, parses and renders one delivery, then acks it.
// Parsing never fails: malformed payloads render as plain text under the
// default title.
func (w *Worker) handlePush(msg domain.NotificationMessage) {
	plaintext := w.decrypt(msg)
	payload := domain.ParseNotificationPayload(plaintext)

	title := payload.DisplayTitle()
	if err := w.notifier.ShowNotification(title, payload.Options()); err != nil {
		log.Printf("[worker] show notification failed: %v", err)
	}

	if w.acker != nil {
		if err := w.acker.Ack(msg.ChannelID, msg.Version); err != nil {
			log.Printf("[worker] ack failed: %v", err)
		}
	}
}

// decrypt recovers the payload plaintext. Unencrypted senders and
// missing key material degrade to the raw bytes; the parse fallback
// downstream keeps those displayable.
func (w *Worker) decrypt(msg domain.NotificationMessage) []byte {
	raw, err := push.DecodeBase64URL(msg.Data)
	if err != nil {
		raw = []byte(msg.Data)
	}

	w.cfgMu.RLock()
	sub := w.cfg.Subscription
	w.cfgMu.RUnlock()
	if sub == nil || sub.PrivateKey == "" || sub.Auth == "" {
		return raw
	}
	encoding := msg.Headers["encoding"]
	if encoding == "" && msg.Headers["crypto_key"] == "" {
		return raw
	}

	authBytes, err := push.DecodeBase64URL(sub.Auth)
	if err != nil {
		log.Printf("[worker] bad auth secret: %v", err)
		return raw
	}
	priv, err := push.PrivateKeyFromRaw(sub.PrivateKey)
	if err != nil {
		log.Printf("[worker] bad private key: %v", err)
		return raw
	}

	params := ecego.OperationalParams{Version: ecego.AES128GCM}
	if encoding != "" {
		params.Version = ecego.Version(encoding)
	}
	if salt := headerParam(msg.Headers["encryption"], "salt="); salt != nil {
		params.Salt = salt
	}
	if dh := headerParam(msg.Headers["crypto_key"], "dh="); dh != nil {
		params.DH = dh
	}

	engine := ecego.NewEngine(ecego.SingleKey(priv), ecego.WithAuthSecret(authBytes))
	plain, err := engine.Decrypt(raw, nil, params)
	if err != nil {
		log.Printf("[worker] decrypt failed, using raw payload: %v", err)
		return raw
	}
	return plain
}

// ClickedNotification is the user acting on a displayed notification.
type ClickedNotification struct {
	Tag  string
	Data map[string]any
}

// HandleClick closes the notification and routes to the target URL:
// focus a matching open window, else open a new one.
func (w *Worker) HandleClick(n ClickedNotification) error {
	if err := w.notifier.CloseNotification(n.Tag); err != nil {
		log.Printf("[worker] close notification failed: %v", err)
	}

	target := "/"
	if u, ok := n.Data["url"].(string); ok && u != "" {
		target = u
	}
	for _, win := range w.windows.MatchAll() {
		if win.URL() == target {
			return win.Focus()
		}
	}
	return w.windows.OpenWindow(target)
}

// headerParam extracts a base64url value like "dh=..." or "salt=..." from
// a ;/, separated header.
func headerParam(header, prefix string) []byte {
	if header == "" {
		return nil
	}
	parts := strings.FieldsFunc(header, func(r rune) bool { return r == ';' || r == ',' })
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, prefix) {
			if b, err := push.DecodeBase64URL(strings.TrimPrefix(p, prefix)); err == nil {
				return b
			}
		}
	}
	return nil
}
