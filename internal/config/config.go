package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	cfg := Config{
		DBName:        getEnv("DB_NAME"),
		MigrationsDir: getOptional("MIGRATIONS_DIR", "./migrations"),
		Port:          getOptional("PORT", "8080"),
		AuthSecret:    getEnv("AUTH_SECRET"),
		DryRun:        getBool("DRY_RUN", false),
		AutoPromote:   getBool("AUTO_PROMOTE", false),
		CORSOrigins:   getList("CORS_ORIGINS", []string{"*"}),
		Turso: TursoConfig{
			PrimaryURL: getOptional("TURSO_PRIMARY_URL", ""),
			AuthToken:  getOptional("TURSO_AUTH_TOKEN", ""),
		},
		PubSub: PubSubConfig{
			Backend:   getOptional("PUBSUB_BACKEND", "none"),
			ProjectID: getOptional("GCP_PROJECT", ""),
			NATSURL:   getOptional("NATS_URL", "nats://127.0.0.1:4222"),
			NATSToken: getOptional("NATS_TOKEN", ""),
			PushToken: getOptional("PUBSUB_PUSH_TOKEN", ""),
		},
		Payment: PaymentConfig{
			ShopID:        getOptional("YOOKASSA_SHOP_ID", ""),
			SecretKey:     getOptional("YOOKASSA_SECRET_KEY", ""),
			BaseURL:       getOptional("YOOKASSA_BASE_URL", "https://api.yookassa.ru"),
			Currency:      getOptional("PAYMENT_CURRENCY", "RUB"),
			ReturnURL:     getOptional("PAYMENT_RETURN_URL", ""),
			WebhookSecret: getOptional("PAYMENT_WEBHOOK_SECRET", ""),
		},
		Slack: SlackConfig{
			Token:         getOptional("SLACK_BOT_TOKEN", ""),
			ChannelID:     getOptional("SLACK_CHANNEL_ID", ""),
			SigningSecret: getOptional("SLACK_SIGNING_SECRET", ""),
		},
		Telegram: TelegramConfig{
			BotToken: getOptional("TELEGRAM_BOT_TOKEN", ""),
		},
		Inngest: InngestConfig{
			AppID:      getOptional("INNGEST_APP_ID", ""),
			SigningKey: getOptional("INNGEST_SIGNING_KEY", ""),
			EventKey:   getOptional("INNGEST_EVENT_KEY", ""),
			AuditCron:  getOptional("INNGEST_AUDIT_CRON", "*/15 * * * *"),
		},
		Jobs: JobsConfig{
			ReconcileInterval: getDuration("RECONCILE_INTERVAL", 5*time.Minute),
			ReconcileAfter:    getDuration("RECONCILE_AFTER", 10*time.Minute),
			AuditInterval:     getDuration("AUDIT_INTERVAL", 15*time.Minute),
		},
	}
	return cfg
}

func getOptional(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn("Invalid boolean, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn("Invalid duration, using default", "key", key, "value", value, "default", fallback)
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
