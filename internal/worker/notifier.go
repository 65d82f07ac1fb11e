package worker

import (
	"log"

	"github.com/webshopd/shopnotify/internal/domain"
)

// Notifier renders OS-level notifications. Implementations must tolerate
// replacement by tag and must not assume synchronous completion by the
// platform.
type Notifier interface {
	ShowNotification(title string, opts domain.NotificationOptions) error
	CloseNotification(tag string) error
}

// LogNotifier is the fallback sink when no real notifier is configured.
type LogNotifier struct{}

func (LogNotifier) ShowNotification(title string, opts domain.NotificationOptions) error {
	sticky := ""
	if opts.RequireInteraction {
		sticky = " (sticky)"
	}
	log.Printf("[worker] notification%s %q: %s [tag=%s]", sticky, title, opts.Body, opts.Tag)
	return nil
}

func (LogNotifier) CloseNotification(tag string) error {
	log.Printf("[worker] notification closed [tag=%s]", tag)
	return nil
}
