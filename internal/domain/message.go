package domain

// Push relay wire protocol (autopush-style messageType framing).

type MessageType string

const (
	MessageTypeHello        MessageType = "hello"
	MessageTypeRegister     MessageType = "register"
	MessageTypeUnregister   MessageType = "unregister"
	MessageTypeNotification MessageType = "notification"
	MessageTypeAck          MessageType = "ack"
)

type HelloRequest struct {
	Type       MessageType `json:"messageType"`
	UAID       string      `json:"uaid,omitempty"`
	ChannelIDs []string    `json:"channelIDs,omitempty"`
	UseWebPush bool        `json:"use_webpush,omitempty"`
}

type HelloResponse struct {
	MessageType string `json:"messageType"`
	UAID        string `json:"uaid"`
	Status      int    `json:"status"`
	UseWebPush  bool   `json:"use_webpush"`
}

type RegisterRequest struct {
	MessageType string `json:"messageType"`
	ChannelID   string `json:"channelID"`
	Key         string `json:"key"` // application server (VAPID) public key
}

type RegisterResponse struct {
	MessageType  string `json:"messageType"`
	ChannelID    string `json:"channelID"`
	Status       int    `json:"status"`
	PushEndpoint string `json:"pushEndpoint"`
}

type UnregisterRequest struct {
	MessageType string `json:"messageType"`
	ChannelID   string `json:"channelID"`
}

// NotificationMessage carries one push delivery. Data is base64url
// ciphertext (or plain text for unencrypted senders); Headers carry the
// content-encoding parameters needed to decrypt it.
type NotificationMessage struct {
	MessageType string            `json:"messageType"`
	ChannelID   string            `json:"channelID"`
	Version     string            `json:"version"`
	Data        string            `json:"data"`
	Headers     map[string]string `json:"headers"`
}

type AckMessage struct {
	MessageType string      `json:"messageType"`
	Updates     []AckUpdate `json:"updates"`
}

type AckUpdate struct {
	ChannelID string `json:"channelID"`
	Version   string `json:"version"`
}
