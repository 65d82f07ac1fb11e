package domain

const (
	DefaultBackendURL   = "http://localhost:5000/api"
	DefaultRealtimeURL  = "ws://localhost:5000/realtime"
	DefaultPushRelayURL = "wss://push.services.mozilla.com/"
)

// Permission policies for the notification permission prompt.
const (
	PermissionPolicyGrant = "grant"
	PermissionPolicyDeny  = "deny"
	PermissionPolicyAsk   = "ask"
)

type Config struct {
	Main struct {
		BackendURL       string `yaml:"backend_url"`
		RealtimeURL      string `yaml:"realtime_url"`
		PushRelayURL     string `yaml:"push_relay_url"`
		VAPIDPublicKey   string `yaml:"vapid_public_key,omitempty"`
		ListenPort       int    `yaml:"listen_port"`
		PermissionPolicy string `yaml:"notification_permission"`
		UAID             string `yaml:"uaid,omitempty"`

		TelegramToken         string `yaml:"telegram_token,omitempty"`
		TelegramChatID        int64  `yaml:"telegram_chat_id,omitempty"`
		AutoCloseDelaySeconds *int   `yaml:"auto_close_delay_seconds,omitempty"`
	} `yaml:"main"`
	Subscription *StoredSubscription `yaml:"subscription,omitempty"`
}
