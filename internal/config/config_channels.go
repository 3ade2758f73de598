package config

// ProvidersConfig maps LLM provider name to its credentials (§4.6, §6).
type ProvidersConfig struct {
	OpenAI      ProviderConfig `json:"openai"`
	Anthropic   ProviderConfig `json:"anthropic"`
	Google      ProviderConfig `json:"google"`
	Cohere      ProviderConfig `json:"cohere"`
	HuggingFace ProviderConfig `json:"huggingface"`
	DashScope   ProviderConfig `json:"dashscope"`
	Ollama      LocalProviderConfig `json:"ollama"`
	LMStudio    LocalProviderConfig `json:"lmstudio"`
}

// ProviderConfig holds a hosted LLM provider's credentials. APIKey is
// always sourced from env, never from a config file.
type ProviderConfig struct {
	APIKey  string `json:"-"`
	APIBase string `json:"api_base,omitempty"`
}

// LocalProviderConfig holds a self-hosted LLM provider's endpoint
// (Ollama, LM Studio) — no API key, just a reachable base URL.
type LocalProviderConfig struct {
	BaseURL string `json:"-"`
}

// ChannelsConfig contains per-channel bootstrap configuration (§4.8).
// WhatsApp credentials are normally resolved per-turn from the
// channel_configs table (internal/store.ChannelConfigStore); the
// fields here are loaded from env vars and the config file only and are
// not written to that table.
type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp,omitempty"`
	Telegram TelegramConfig `json:"telegram,omitempty"`
	Email    EmailConfig    `json:"email,omitempty"`
}

// WhatsAppConfig seeds default credentials for one of the three
// supported wire formats (§4.8). Exactly one provider's fields should
// be populated in a given deployment.
type WhatsAppConfig struct {
	Dialog360 Dialog360Config `json:"-"`
	Ultramsg  UltramsgConfig  `json:"-"`
	Twilio    TwilioConfig    `json:"-"`
}

type Dialog360Config struct {
	APIKey        string
	PhoneNumberID string
}

type UltramsgConfig struct {
	InstanceID string
	Token      string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// TelegramConfig configures the single bot token that serves the
// whole deployment's Telegram webhook (§4.8).
type TelegramConfig struct {
	BotToken string `json:"-"`
}

// EmailConfig configures the IMAP polling loop (inbound) and SMTP
// relay (outbound) for the email channel (§4.8).
type EmailConfig struct {
	SMTPHost     string `json:"-"`
	SMTPPort     int    `json:"-"`
	SMTPUsername string `json:"-"`
	SMTPPassword string `json:"-"`
	FromAddress  string `json:"-"`

	IMAPHost     string `json:"-"`
	IMAPPort     int    `json:"-"`
	IMAPUsername string `json:"-"`
	IMAPPassword string `json:"-"`
	IMAPMailbox  string `json:"imap_mailbox,omitempty"` // default "INBOX"
}

// ToolsConfig controls the Tool Runtime's dynamic tool sources (§4.7).
type ToolsConfig struct {
	McpServers map[string]*MCPServerConfig `json:"mcp_servers,omitempty"`
}

// MCPServerConfig configures a single external MCP server connection.
type MCPServerConfig struct {
	Transport  string            `json:"transport"`             // "stdio", "sse", "streamable-http"
	Command    string            `json:"command,omitempty"`     // stdio: command to spawn
	Args       []string          `json:"args,omitempty"`        // stdio: command arguments
	Env        map[string]string `json:"env,omitempty"`         // stdio: extra environment variables
	URL        string            `json:"url,omitempty"`         // sse/http: server URL
	Headers    map[string]string `json:"headers,omitempty"`     // sse/http: extra HTTP headers
	Enabled    *bool             `json:"enabled,omitempty"`     // default true
	ToolPrefix string            `json:"tool_prefix,omitempty"` // prefix for tool names (avoids collisions)
	TimeoutSec int               `json:"timeout_sec,omitempty"` // per-tool-call timeout in seconds (default 60)
}

// IsEnabled returns whether this MCP server is enabled (default true).
func (c *MCPServerConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// TelemetryConfig configures OpenTelemetry export for traces and
// spans. When enabled, spans are exported to an OTLP-compatible
// backend (Jaeger, Tempo, Datadog, etc.) alongside structured logs.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"`
	Protocol    string            `json:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`
	ServiceName string            `json:"service_name,omitempty"` // default "orchhub"
	Headers     map[string]string `json:"headers,omitempty"`
}
