package config

// Config is the root configuration for the orchestration hub (§6).
//
// Non-secret shape (listeners, CORS, MCP server definitions, queue
// toggles) may come from a JSON config file; every credential field
// carries `json:"-"` and is populated from the environment only, so a
// dumped config file is always safe to commit.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database,omitempty"`
	Redis     RedisConfig     `json:"redis,omitempty"`
	JWT       JWTConfig       `json:"jwt,omitempty"`
	API       APIConfig       `json:"api,omitempty"`
	Webchat   WebchatConfig   `json:"webchat,omitempty"`
	Context   ContextConfig   `json:"context,omitempty"`
	Queue     QueueConfig     `json:"queue,omitempty"`
	Providers ProvidersConfig `json:"providers"`
	Channels  ChannelsConfig  `json:"channels"`
	Tools     ToolsConfig     `json:"tools"`
	Telemetry TelemetryConfig `json:"telemetry,omitempty"`
}

// ServerConfig controls the HTTP/WS listener that serves webhooks,
// the webchat WebSocket upgrade, and /health (§6).
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// DatabaseConfig configures the relational store (§3, §6). DSN is
// never read from a config file — env DATABASE_URL only.
type DatabaseConfig struct {
	DSN string `json:"-"`
}

// RedisConfig configures the cache/broker backing the outbound send
// queue (§4.9, §6). URL is env-only.
type RedisConfig struct {
	URL string `json:"-"`
}

// JWTConfig configures signing of webchat widget session tokens
// (§4.10). Secret is env-only.
type JWTConfig struct {
	Secret string `json:"-"`
}

// APIConfig configures the static-key auth accepted by §6's direct API
// ingress (`POST /api/v1/messages/send`, as an alternative to a webchat
// bearer token) and the Integrations API (`/api/v1/integrations/*`,
// API-key only). Key is env-only.
type APIConfig struct {
	Key string `json:"-"`
}

// WebchatConfig controls the WebSocket session layer's CORS policy.
type WebchatConfig struct {
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // "*" in dev
}

// ContextConfig holds the session TTL loaded from MCP_CONTEXT_TTL. The
// Context Manager does not read it: sessions are not expired by TTL.
type ContextConfig struct {
	TTLSeconds int `json:"ttl_seconds,omitempty"` // MCP_CONTEXT_TTL, default 3600
}

// QueueConfig controls the outbound send queue (§4.9).
type QueueConfig struct {
	UseQueueForWhatsApp bool `json:"use_queue_for_whatsapp"`
}

// HasAnyProvider returns true if at least one LLM provider has an
// API key or base URL configured.
func (c *Config) HasAnyProvider() bool {
	p := c.Providers
	return p.OpenAI.APIKey != "" ||
		p.Anthropic.APIKey != "" ||
		p.Google.APIKey != "" ||
		p.Cohere.APIKey != "" ||
		p.HuggingFace.APIKey != "" ||
		p.DashScope.APIKey != "" ||
		p.Ollama.BaseURL != "" ||
		p.LMStudio.BaseURL != ""
}

// IsManagedMode returns true if a relational store is configured.
// Without DATABASE_URL the hub refuses to start (cmd/orchhub main).
func (c *Config) IsManagedMode() bool {
	return c.Database.DSN != ""
}
