package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	// AuthSecret verifies X-Api-Token JWTs.
	AuthSecret  string
	DryRun      bool
	AutoPromote bool
	CORSOrigins []string
	Turso       TursoConfig
	PubSub      PubSubConfig
	Payment     PaymentConfig
	Slack       SlackConfig
	Telegram    TelegramConfig
	Inngest     InngestConfig
	Jobs        JobsConfig
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

// PubSubConfig selects the lifecycle message backend: "gcp", "nats" or "none".
type PubSubConfig struct {
	Backend   string
	ProjectID string
	NATSURL   string
	NATSToken string
	// PushToken must match the token query parameter of push deliveries.
	PushToken string
}

type PaymentConfig struct {
	ShopID        string
	SecretKey     string
	BaseURL       string
	Currency      string
	ReturnURL     string
	WebhookSecret string
}

// Enabled reports whether gateway credentials are present.
func (p PaymentConfig) Enabled() bool {
	return p.ShopID != "" && p.SecretKey != ""
}

type SlackConfig struct {
	Token         string
	ChannelID     string
	SigningSecret string
}

type TelegramConfig struct {
	BotToken string
}

type InngestConfig struct {
	SigningKey string
	EventKey   string
	AppID      string
	AuditCron  string
}

// Enabled reports whether the Inngest app is configured.
func (i InngestConfig) Enabled() bool {
	return i.AppID != "" && i.SigningKey != ""
}

type JobsConfig struct {
	ReconcileInterval time.Duration
	ReconcileAfter    time.Duration
	AuditInterval     time.Duration
}
