package domain

import "testing"

func TestParseNotificationPayload(t *testing.T) {
	p := ParseNotificationPayload([]byte(`{"title":"Order Shipped","message":"On its way","type":"success","priority":"high","tag":"order-1"}`))
	if p.Title != "Order Shipped" || p.Message != "On its way" {
		t.Fatalf("parsed = %+v", p)
	}
	if p.Type != TypeSuccess || p.Priority != PriorityHigh || p.Tag != "order-1" {
		t.Fatalf("parsed = %+v", p)
	}
}

func TestParseNotificationPayloadPlainTextFallback(t *testing.T) {
	p := ParseNotificationPayload([]byte("not json at all"))
	if p.Title != DefaultNotificationTitle {
		t.Fatalf("title = %q, want default", p.Title)
	}
	if p.Body != "not json at all" {
		t.Fatalf("body = %q", p.Body)
	}

	// Empty payloads also never fail.
	p = ParseNotificationPayload(nil)
	if p.Title != DefaultNotificationTitle {
		t.Fatalf("title = %q, want default", p.Title)
	}
}

func TestDisplayBodyPrefersMessage(t *testing.T) {
	p := NotificationPayload{Message: "from message", Body: "from body"}
	if got := p.DisplayBody(); got != "from message" {
		t.Fatalf("body = %q", got)
	}
	p = NotificationPayload{Body: "from body"}
	if got := p.DisplayBody(); got != "from body" {
		t.Fatalf("body = %q", got)
	}
	p = NotificationPayload{}
	if got := p.DisplayBody(); got != "You have a new notification" {
		t.Fatalf("body = %q", got)
	}
}

func TestDisplayTagFallbacks(t *testing.T) {
	if got := (NotificationPayload{Tag: "t1", Type: TypeInfo}).DisplayTag(); got != "t1" {
		t.Fatalf("tag = %q", got)
	}
	if got := (NotificationPayload{Type: TypeWarning}).DisplayTag(); got != "warning" {
		t.Fatalf("tag = %q", got)
	}
	if got := (NotificationPayload{}).DisplayTag(); got != "notification" {
		t.Fatalf("tag = %q", got)
	}
}

func TestRequireInteractionByPriority(t *testing.T) {
	cases := map[Priority]bool{
		"":             false,
		PriorityNormal: false,
		PriorityHigh:   true,
		PriorityUrgent: true,
	}
	for priority, want := range cases {
		p := NotificationPayload{Priority: priority}
		if got := p.RequireInteraction(); got != want {
			t.Errorf("priority %q: RequireInteraction = %v, want %v", priority, got, want)
		}
	}
}

func TestOptionsCarriesClickData(t *testing.T) {
	p := NotificationPayload{
		Message:  "m",
		Tag:      "order-9",
		Priority: PriorityUrgent,
		Data:     map[string]any{"url": "/orders/9"},
	}
	opts := p.Options()
	if opts.Body != "m" || opts.Tag != "order-9" || !opts.RequireInteraction {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.Data["url"] != "/orders/9" {
		t.Fatalf("click data lost: %+v", opts.Data)
	}
}
