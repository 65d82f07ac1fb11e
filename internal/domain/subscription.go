package domain

// SubscriptionKeys are the client-side encryption parameters the backend
// needs to encrypt pushes for this subscription.
type SubscriptionKeys struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// SubscriptionRecord is the serializable form of a push subscription: the
// endpoint the backend delivers to plus the encryption keys. This is the
// exact JSON shape POSTed to the backend sync endpoint.
type SubscriptionRecord struct {
	Endpoint string           `json:"endpoint"`
	Keys     SubscriptionKeys `json:"keys"`
}

// StoredSubscription is the persisted relationship between this client and
// the push relay. At most one exists per receiver; a subscribe must reuse
// it rather than create a duplicate. The private key never leaves the
// config file.
type StoredSubscription struct {
	Endpoint   string `yaml:"endpoint"`
	P256DH     string `yaml:"p256dh"`
	Auth       string `yaml:"auth"`
	PrivateKey string `yaml:"private_key"`
	ChannelID  string `yaml:"channel_id"`
}

// Record returns the backend-facing serializable form.
func (s *StoredSubscription) Record() *SubscriptionRecord {
	return &SubscriptionRecord{
		Endpoint: s.Endpoint,
		Keys: SubscriptionKeys{
			P256DH: s.P256DH,
			Auth:   s.Auth,
		},
	}
}
