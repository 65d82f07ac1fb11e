package telegram

import (
	"fmt"
	"log"
	"sync"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/webshopd/shopnotify/internal/dispatch"
	"github.com/webshopd/shopnotify/internal/domain"
)

func InitTelegram(config *domain.Config) (*telebot.Bot, error) {
	if config.Main.TelegramToken == "" || config.Main.TelegramChatID == 0 {
		return nil, fmt.Errorf("telegram_token and telegram_chat_id must be set in the config")
	}
	b, err := telebot.NewBot(telebot.Settings{
		Token:  config.Main.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[telegram] bot initialized")
	return b, nil
}

// Sink renders notifications and alerts as Telegram messages. Same-tag
// messages replace each other, and non-sticky ones are deleted after the
// auto-close delay, so the chat behaves like an OS notification area.
type Sink struct {
	bot   *telebot.Bot
	cfg   *domain.Config
	cfgMu *sync.RWMutex

	mu    sync.Mutex
	byTag map[string]*telebot.Message
}

func NewSink(bot *telebot.Bot, cfg *domain.Config, cfgMu *sync.RWMutex) *Sink {
	return &Sink{
		bot:   bot,
		cfg:   cfg,
		cfgMu: cfgMu,
		byTag: make(map[string]*telebot.Message),
	}
}

// ShowNotification implements the worker's notifier.
func (s *Sink) ShowNotification(title string, opts domain.NotificationOptions) error {
	s.mu.Lock()
	prev := s.byTag[opts.Tag]
	s.mu.Unlock()
	if prev != nil {
		_ = s.bot.Delete(prev)
	}

	text := fmt.Sprintf("\U0001F514 *%s*\n%s", title, opts.Body)
	msg, err := s.send(text)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.byTag[opts.Tag] = msg
	s.mu.Unlock()

	if !opts.RequireInteraction {
		s.scheduleClose(opts.Tag, msg, s.autoCloseDelay())
	}
	return nil
}

func (s *Sink) CloseNotification(tag string) error {
	s.mu.Lock()
	msg := s.byTag[tag]
	delete(s.byTag, tag)
	s.mu.Unlock()
	if msg == nil {
		return nil
	}
	return s.bot.Delete(msg)
}

// Deliver implements the dispatch alert sink.
func (s *Sink) Deliver(a dispatch.Alert) {
	text := fmt.Sprintf("%s *%s*\n%s", severityEmoji(a.Severity), a.Title, a.Body)
	msg, err := s.send(text)
	if err != nil {
		log.Printf("[telegram] send failed: %v", err)
		return
	}
	if !a.Sticky && a.Duration > 0 {
		s.scheduleClose("", msg, a.Duration)
	}
}

func (s *Sink) send(text string) (*telebot.Message, error) {
	s.cfgMu.RLock()
	chatID := s.cfg.Main.TelegramChatID
	s.cfgMu.RUnlock()
	return s.bot.Send(&telebot.Chat{ID: chatID}, text, telebot.ModeMarkdown)
}

func (s *Sink) scheduleClose(tag string, msg *telebot.Message, delay time.Duration) {
	if delay <= 0 {
		return
	}
	time.AfterFunc(delay, func() {
		if tag != "" {
			s.mu.Lock()
			// A newer message may have replaced this tag already.
			if s.byTag[tag] != msg {
				s.mu.Unlock()
				return
			}
			delete(s.byTag, tag)
			s.mu.Unlock()
		}
		_ = s.bot.Delete(msg)
	})
}

func (s *Sink) autoCloseDelay() time.Duration {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	if d := s.cfg.Main.AutoCloseDelaySeconds; d != nil {
		return time.Duration(*d) * time.Second
	}
	return 5 * time.Second
}

func severityEmoji(t domain.NotificationType) string {
	switch t {
	case domain.TypeSuccess:
		return "✅"
	case domain.TypeWarning:
		return "⚠️"
	case domain.TypeError:
		return "\U0001F534"
	default:
		return "ℹ️"
	}
}
