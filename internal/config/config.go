package config

import (
	"fmt"
	"log"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	RabbitMQURL string

	AsaasAPIKey       string
	AsaasURL          string
	AsaasWebhookToken string

	ClerkJWTKey        string
	ClerkWebhookSecret string

	BrevoAPIKey string
	BrevoListID int64
	BrevoURL    string

	MailHost string
	MailPort int
	MailUser string
	MailPass string
	MailFrom string

	WhatsAppAccessToken string
	WhatsAppPhoneID     string
	WhatsAppVerifyToken string
	WhatsAppURL         string

	DifyAPIKey string
	DifyURL    string

	DataEncryptionKey string
	CORSOrigins       []string
	TrustedProxies    []netip.Prefix
	OTelEndpoint      string
	OTelInsecure      bool

	DefaultOrganizationID  string
	WhatsAppOrganizationID string

	FeatureWorkers       bool
	FeatureAISuggestions bool

	WebhookRetryInterval time.Duration
	PaymentSyncInterval  time.Duration
	SubscriptionInterval time.Duration
	CampaignInterval     time.Duration
	ContactSyncInterval  time.Duration
	ShutdownTimeout      time.Duration
}

// Load lê o .env (se existir) e o ambiente. Só DATABASE_URL é obrigatório;
// integrações sem credencial ficam desligadas.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("⚠️ .env ignorado: %v", err)
	}

	cfg := &Config{
		Port:        readString("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		AsaasAPIKey:       os.Getenv("ASAAS_API_KEY"),
		AsaasURL:          readString("ASAAS_URL", "https://sandbox.asaas.com/api/v3"),
		AsaasWebhookToken: os.Getenv("ASAAS_WEBHOOK_TOKEN"),

		ClerkJWTKey:        os.Getenv("CLERK_JWT_KEY"),
		ClerkWebhookSecret: os.Getenv("CLERK_WEBHOOK_SECRET"),

		BrevoAPIKey: os.Getenv("BREVO_API_KEY"),
		BrevoURL:    os.Getenv("BREVO_URL"),

		MailHost: os.Getenv("MAIL_HOST"),
		MailUser: os.Getenv("MAIL_USER"),
		MailPass: os.Getenv("MAIL_PASS"),
		MailFrom: os.Getenv("MAIL_FROM"),

		WhatsAppAccessToken: os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		WhatsAppPhoneID:     os.Getenv("WHATSAPP_PHONE_ID"),
		WhatsAppVerifyToken: os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		WhatsAppURL:         os.Getenv("WHATSAPP_URL"),

		DifyAPIKey: os.Getenv("DIFY_API_KEY"),
		DifyURL:    os.Getenv("DIFY_URL"),

		DataEncryptionKey: os.Getenv("DATA_ENCRYPTION_KEY"),
		CORSOrigins:       readList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		OTelEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		DefaultOrganizationID: os.Getenv("DEFAULT_ORGANIZATION_ID"),
	}
	cfg.WhatsAppOrganizationID = readString("WHATSAPP_ORGANIZATION_ID", cfg.DefaultOrganizationID)

	var errs []string
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	var err error
	cfg.BrevoListID, err = readInt("BREVO_LIST_ID", 0)
	collect(err)
	mailPort, err := readInt("MAIL_PORT", 587)
	collect(err)
	cfg.MailPort = int(mailPort)
	cfg.OTelInsecure, err = readBool("OTEL_EXPORTER_OTLP_INSECURE", true)
	collect(err)
	cfg.FeatureWorkers, err = readBool("FEATURE_WORKERS", true)
	collect(err)
	cfg.FeatureAISuggestions, err = readBool("FEATURE_AI_SUGGESTIONS", false)
	collect(err)
	cfg.WebhookRetryInterval, err = readDuration("WEBHOOK_RETRY_INTERVAL", 5*time.Minute)
	collect(err)
	cfg.PaymentSyncInterval, err = readDuration("PAYMENT_SYNC_INTERVAL", time.Hour)
	collect(err)
	cfg.SubscriptionInterval, err = readDuration("SUBSCRIPTION_SYNC_INTERVAL", 30*time.Minute)
	collect(err)
	cfg.CampaignInterval, err = readDuration("CAMPAIGN_DISPATCH_INTERVAL", time.Minute)
	collect(err)
	cfg.ContactSyncInterval, err = readDuration("CONTACT_SYNC_INTERVAL", 30*time.Minute)
	collect(err)
	cfg.ShutdownTimeout, err = readDuration("SHUTDOWN_TIMEOUT", 15*time.Second)
	collect(err)
	cfg.TrustedProxies, err = readPrefixes("TRUSTED_PROXIES")
	collect(err)

	if cfg.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL é obrigatório")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuração inválida: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func readString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func readInt(key string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def, fmt.Errorf("%s deve ser inteiro", key)
	}
	return n, nil
}

func readBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s deve ser true/false", key)
	}
	return b, nil
}

func readDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def, fmt.Errorf("%s deve ser uma duração (ex.: 30s, 5m)", key)
	}
	return d, nil
}

func readList(key string, def []string) []string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readPrefixes aceita CIDRs ou IPs soltos ("10.0.0.0/8, 127.0.0.1"). Vazio: nenhum proxy confiável.
func readPrefixes(key string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, v := range readList(key, nil) {
		if !strings.Contains(v, "/") {
			addr, err := netip.ParseAddr(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %q não é IP nem CIDR", key, v)
			}
			out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %q não é IP nem CIDR", key, v)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}
