package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Context: ContextConfig{
			TTLSeconds: 3600,
		},
		Queue: QueueConfig{
			UseQueueForWhatsApp: true,
		},
		Channels: ChannelsConfig{
			Email: EmailConfig{
				SMTPPort:    587,
				IMAPPort:    993,
				IMAPMailbox: "INBOX",
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "orchhub",
			Protocol:    "grpc",
		},
	}
}

// Load reads non-secret shape from a JSON(5) file, then overlays
// every credential from the environment. Env vars always win.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays the env vars named in §6 onto the
// config. Every credential is env-only by design — none of them
// round-trip through the JSON config file.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("DATABASE_URL", &c.Database.DSN)
	envStr("REDIS_URL", &c.Redis.URL)
	envStr("JWT_SECRET", &c.JWT.Secret)
	envStr("HUB_API_KEY", &c.API.Key)

	if v := os.Getenv("MCP_CONTEXT_TTL"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			c.Context.TTLSeconds = sec
		}
	}

	if v := os.Getenv("USE_QUEUE_FOR_WHATSAPP"); v != "" {
		c.Queue.UseQueueForWhatsApp = v != "false" && v != "0"
	}

	if v := os.Getenv("WEBCHAT_ALLOWED_ORIGINS"); v != "" {
		c.Webchat.AllowedOrigins = strings.Split(v, ",")
	}

	// LLM providers
	envStr("OPENAI_API_KEY", &c.Providers.OpenAI.APIKey)
	envStr("ANTHROPIC_API_KEY", &c.Providers.Anthropic.APIKey)
	envStr("GOOGLE_API_KEY", &c.Providers.Google.APIKey)
	envStr("COHERE_API_KEY", &c.Providers.Cohere.APIKey)
	envStr("HUGGINGFACE_API_KEY", &c.Providers.HuggingFace.APIKey)
	envStr("DASHSCOPE_API_KEY", &c.Providers.DashScope.APIKey)
	envStr("OLLAMA_BASE_URL", &c.Providers.Ollama.BaseURL)
	envStr("LMSTUDIO_BASE_URL", &c.Providers.LMStudio.BaseURL)

	// WhatsApp — exactly one wire format's credentials are expected
	// to be set in a given deployment.
	envStr("WHATSAPP_360DIALOG_API_KEY", &c.Channels.WhatsApp.Dialog360.APIKey)
	envStr("WHATSAPP_360DIALOG_PHONE_NUMBER_ID", &c.Channels.WhatsApp.Dialog360.PhoneNumberID)
	envStr("WHATSAPP_ULTRAMSG_INSTANCE_ID", &c.Channels.WhatsApp.Ultramsg.InstanceID)
	envStr("WHATSAPP_ULTRAMSG_TOKEN", &c.Channels.WhatsApp.Ultramsg.Token)
	envStr("WHATSAPP_TWILIO_ACCOUNT_SID", &c.Channels.WhatsApp.Twilio.AccountSID)
	envStr("WHATSAPP_TWILIO_AUTH_TOKEN", &c.Channels.WhatsApp.Twilio.AuthToken)
	envStr("WHATSAPP_TWILIO_FROM_NUMBER", &c.Channels.WhatsApp.Twilio.FromNumber)

	envStr("TELEGRAM_BOT_TOKEN", &c.Channels.Telegram.BotToken)

	envStr("EMAIL_SMTP_HOST", &c.Channels.Email.SMTPHost)
	if v := os.Getenv("EMAIL_SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Channels.Email.SMTPPort = port
		}
	}
	envStr("EMAIL_SMTP_USERNAME", &c.Channels.Email.SMTPUsername)
	envStr("EMAIL_SMTP_PASSWORD", &c.Channels.Email.SMTPPassword)
	envStr("EMAIL_SMTP_FROM", &c.Channels.Email.FromAddress)

	envStr("EMAIL_IMAP_HOST", &c.Channels.Email.IMAPHost)
	if v := os.Getenv("EMAIL_IMAP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Channels.Email.IMAPPort = port
		}
	}
	envStr("EMAIL_IMAP_USERNAME", &c.Channels.Email.IMAPUsername)
	envStr("EMAIL_IMAP_PASSWORD", &c.Channels.Email.IMAPPassword)

	// Server
	envStr("HOST", &c.Server.Host)
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}

	// Telemetry
	envStr("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.Endpoint)
	if v := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"); v != "" {
		c.Telemetry.Protocol = v
	}
	if v := os.Getenv("OTEL_SDK_DISABLED"); v != "" {
		c.Telemetry.Enabled = v == "false" || v == "0"
	} else if c.Telemetry.Endpoint != "" {
		c.Telemetry.Enabled = true
	}
}

// ApplyEnvOverrides re-applies environment variable overrides onto
// the config. Call this after modifying config to restore runtime
// secrets from env vars.
func (c *Config) ApplyEnvOverrides() {
	c.applyEnvOverrides()
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
