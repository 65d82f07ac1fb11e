package domain

import "encoding/json"

const DefaultNotificationTitle = "Shoe Store"

type NotificationType string

const (
	TypeInfo    NotificationType = "info"
	TypeWarning NotificationType = "warning"
	TypeSuccess NotificationType = "success"
	TypeError   NotificationType = "error"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// NotificationPayload is the wire-level payload arriving via push or
// socket. Producer-controlled, so every field is optional and parsing is
// defensive. Never persisted.
type NotificationPayload struct {
	Title    string           `json:"title,omitempty"`
	Message  string           `json:"message,omitempty"`
	Body     string           `json:"body,omitempty"`
	Type     NotificationType `json:"type,omitempty"`
	Data     map[string]any   `json:"data,omitempty"`
	Priority Priority         `json:"priority,omitempty"`
	Tag      string           `json:"tag,omitempty"`
}

// ParseNotificationPayload parses raw push data as JSON; if that fails the
// raw bytes become a plain-text body under the default title. The sender's
// payload format is not guaranteed to be well-formed JSON, so the fallback
// is mandatory and this function never fails.
func ParseNotificationPayload(raw []byte) NotificationPayload {
	var p NotificationPayload
	if len(raw) > 0 && json.Unmarshal(raw, &p) == nil {
		return p
	}
	return NotificationPayload{
		Title: DefaultNotificationTitle,
		Body:  string(raw),
	}
}

// DisplayTitle returns the title to render, falling back to the default.
func (p NotificationPayload) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return DefaultNotificationTitle
}

// DisplayBody prefers message over body, matching the sender contract.
func (p NotificationPayload) DisplayBody() string {
	if p.Message != "" {
		return p.Message
	}
	if p.Body != "" {
		return p.Body
	}
	return "You have a new notification"
}

// DisplayTag is used for notification replacement and deduplication.
func (p NotificationPayload) DisplayTag() string {
	if p.Tag != "" {
		return p.Tag
	}
	if p.Type != "" {
		return string(p.Type)
	}
	return "notification"
}

// RequireInteraction keeps the notification visible until the user acts,
// for events that must not be missed.
func (p NotificationPayload) RequireInteraction() bool {
	return p.Priority == PriorityHigh || p.Priority == PriorityUrgent
}

// NotificationOptions is what a notifier renders besides the title.
// Data travels opaquely to click routing; RequireInteraction suppresses
// auto-close.
type NotificationOptions struct {
	Body               string
	Icon               string
	Badge              string
	Tag                string
	Data               map[string]any
	RequireInteraction bool
}

// Options maps the payload to its rendered form, the same defaulting the
// notification handler applies before display.
func (p NotificationPayload) Options() NotificationOptions {
	return NotificationOptions{
		Body:               p.DisplayBody(),
		Icon:               "/icon-192x192.png",
		Badge:              "/badge-72x72.png",
		Tag:                p.DisplayTag(),
		Data:               p.Data,
		RequireInteraction: p.RequireInteraction(),
	}
}
