package config

import "testing"

func TestDefault_SetsQueueAndTTLDefaults(t *testing.T) {
	cfg := Default()
	if !cfg.Queue.UseQueueForWhatsApp {
		t.Fatal("expected UseQueueForWhatsApp to default true")
	}
	if cfg.Context.TTLSeconds != 3600 {
		t.Fatalf("got TTLSeconds=%d, want 3600", cfg.Context.TTLSeconds)
	}
}

func TestApplyEnvOverrides_SecretsAndLists(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@host/db")
	t.Setenv("REDIS_URL", "redis://host:6379")
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("MCP_CONTEXT_TTL", "120")
	t.Setenv("USE_QUEUE_FOR_WHATSAPP", "false")
	t.Setenv("WEBCHAT_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")

	cfg := Default()
	cfg.applyEnvOverrides()

	if cfg.Database.DSN != "postgres://u:p@host/db" {
		t.Fatalf("got DSN=%q", cfg.Database.DSN)
	}
	if cfg.Redis.URL != "redis://host:6379" {
		t.Fatalf("got Redis.URL=%q", cfg.Redis.URL)
	}
	if cfg.JWT.Secret != "s3cr3t" {
		t.Fatalf("got JWT.Secret=%q", cfg.JWT.Secret)
	}
	if cfg.Context.TTLSeconds != 120 {
		t.Fatalf("got TTLSeconds=%d, want 120", cfg.Context.TTLSeconds)
	}
	if cfg.Queue.UseQueueForWhatsApp {
		t.Fatal("expected UseQueueForWhatsApp=false to stick")
	}
	if len(cfg.Webchat.AllowedOrigins) != 2 || cfg.Webchat.AllowedOrigins[0] != "https://a.example" {
		t.Fatalf("got AllowedOrigins=%v", cfg.Webchat.AllowedOrigins)
	}
	if cfg.Channels.Telegram.BotToken != "bot-token" {
		t.Fatalf("got BotToken=%q", cfg.Channels.Telegram.BotToken)
	}
}

func TestHasAnyProvider(t *testing.T) {
	cfg := Default()
	if cfg.HasAnyProvider() {
		t.Fatal("expected no providers configured by default")
	}
	cfg.Providers.OpenAI.APIKey = "key"
	if !cfg.HasAnyProvider() {
		t.Fatal("expected HasAnyProvider to be true once a key is set")
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("got Port=%d, want default 8080", cfg.Server.Port)
	}
}
