package worker

import "log"

// Window is one open application window.
type Window interface {
	URL() string
	Focus() error
}

// WindowManager routes notification clicks: focus an existing window on
// the target URL, or open a new one. Avoids duplicate windows for the
// common case of the app already being open.
type WindowManager interface {
	MatchAll() []Window
	OpenWindow(url string) error
}

// LogWindowManager records routing decisions without a display server.
type LogWindowManager struct{}

func (LogWindowManager) MatchAll() []Window { return nil }

func (LogWindowManager) OpenWindow(url string) error {
	log.Printf("[worker] open window %s", url)
	return nil
}
