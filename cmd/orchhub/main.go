// Command orchhub runs the multi-channel conversational-AI orchestration
// hub (§1): it wires the Context Manager, RAG Engine, LLM Gateway, Tool
// Runtime, Flow Router and Orchestrator to the WhatsApp/Telegram/email
// webhook ingress, the webchat WebSocket session layer, and the outbound
// send queue, then serves HTTP until signaled to stop.
//
// Grounded on the teacher's cmd/goclaw/main.go composition-root shape
// (load config, build stores, construct collaborators bottom-up, mount
// an http.ServeMux, run with graceful shutdown on SIGINT/SIGTERM) —
// generalized from goclaw's single-agent/channel-bridge wiring to the
// hub's conversation-core + channel-adapter wiring.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextlevelbuilder/orchhub/internal/bus"
	"github.com/nextlevelbuilder/orchhub/internal/channels"
	"github.com/nextlevelbuilder/orchhub/internal/channels/email"
	"github.com/nextlevelbuilder/orchhub/internal/channels/telegram"
	"github.com/nextlevelbuilder/orchhub/internal/channels/whatsapp"
	"github.com/nextlevelbuilder/orchhub/internal/config"
	"github.com/nextlevelbuilder/orchhub/internal/ctxmgr"
	"github.com/nextlevelbuilder/orchhub/internal/flowrouter"
	orchhttp "github.com/nextlevelbuilder/orchhub/internal/http"
	"github.com/nextlevelbuilder/orchhub/internal/idempotency"
	"github.com/nextlevelbuilder/orchhub/internal/ingress"
	"github.com/nextlevelbuilder/orchhub/internal/llmgateway"
	"github.com/nextlevelbuilder/orchhub/internal/mcp"
	"github.com/nextlevelbuilder/orchhub/internal/orchestrator"
	"github.com/nextlevelbuilder/orchhub/internal/providers"
	"github.com/nextlevelbuilder/orchhub/internal/rag"
	"github.com/nextlevelbuilder/orchhub/internal/sendqueue"
	"github.com/nextlevelbuilder/orchhub/internal/store"
	"github.com/nextlevelbuilder/orchhub/internal/store/pg"
	"github.com/nextlevelbuilder/orchhub/internal/telemetry"
	"github.com/nextlevelbuilder/orchhub/internal/toolruntime"
	"github.com/nextlevelbuilder/orchhub/internal/wschannel"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON5 config file overlaying non-secret settings")
	flag.Parse()

	logLevel := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel.Set(slog.LevelDebug)
	}

	if err := run(*configPath); err != nil {
		slog.Error("orchhub.fatal", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config.LoadDotEnv()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	shutdownTelemetry, err := telemetry.Bootstrap(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("bootstrap telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	if !cfg.IsManagedMode() {
		return errors.New("DATABASE_URL is required: the hub has no standalone mode")
	}

	pool, err := pg.Open(ctx, store.Config{PostgresDSN: cfg.Database.DSN, MaxConns: 20})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()
	stores := pg.NewStores(pool)

	if cfg.Redis.URL == "" {
		return errors.New("REDIS_URL is required: the send queue and session cache have no in-memory fallback")
	}
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse REDIS_URL: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	sessions := ctxmgr.NewManager(stores.Conversations, stores.Messages, ctxmgr.DefaultHistoryCap)

	embedders := buildEmbedderRegistry(cfg.Providers)
	ragEngine := rag.NewEngine(stores.KnowledgeBases, stores.Embeddings, embedders)

	gateway := llmgateway.New(llmgateway.Config{
		Strategy:        llmgateway.StrategyPriority,
		FallbackEnabled: true,
		Retry:           providers.DefaultRetryConfig(),
	})
	registerProviders(gateway, cfg.Providers)
	if !cfg.HasAnyProvider() {
		slog.Warn("orchhub.no_llm_providers_configured")
	}

	toolRegistry := toolruntime.NewRegistry()
	mcpManager := mcp.NewManager(toolRegistry, cfg.Tools.McpServers)
	if err := mcpManager.Start(ctx); err != nil {
		slog.Error("mcp.start_failed", "error", err)
	}
	defer mcpManager.Stop()

	toolsRuntime := toolruntime.NewRuntime(toolRegistry, stores.ToolExecs, nil, nil, nil)

	router := flowrouter.New(stores.Flows)

	events := bus.NewBroker()

	orch := orchestrator.New(orchestrator.Config{
		Sessions: sessions,
		RAG:      ragEngine,
		Gateway:  gateway,
		Tools:    toolsRuntime,
		ToolDefs: stores.ToolDefs,
		Events:   events,
	})

	sendQueue := sendqueue.New(redisClient, 4)
	sender := &sendqueue.Sender{Queue: sendQueue, UseQueueForWhatsApp: cfg.Queue.UseQueueForWhatsApp}

	waChannel := whatsapp.NewFromStore(stores.Channels)
	registry := sendqueue.Registry{
		string(whatsapp.Provider360Dialog): waChannel,
		string(whatsapp.ProviderUltramsg):  waChannel,
		string(whatsapp.ProviderTwilio):    waChannel,
	}

	var telegramChannel *telegram.Channel
	if cfg.Channels.Telegram.BotToken != "" {
		telegramChannel, err = telegram.New(cfg.Channels.Telegram.BotToken)
		if err != nil {
			return fmt.Errorf("build telegram channel: %w", err)
		}
		registry["telegram"] = telegramChannel
	}

	var emailChannel *email.Channel
	if cfg.Channels.Email.SMTPHost != "" {
		emailChannel = email.New(email.Config{
			IMAPHost:     cfg.Channels.Email.IMAPHost,
			IMAPPort:     cfg.Channels.Email.IMAPPort,
			IMAPUsername: cfg.Channels.Email.IMAPUsername,
			IMAPPassword: cfg.Channels.Email.IMAPPassword,
			SMTPHost:     cfg.Channels.Email.SMTPHost,
			SMTPPort:     cfg.Channels.Email.SMTPPort,
			SMTPUsername: cfg.Channels.Email.SMTPUsername,
			SMTPPassword: cfg.Channels.Email.SMTPPassword,
			FromAddress:  cfg.Channels.Email.FromAddress,
			Processor:    &emailProcessor{orch: orch, conversations: stores.Conversations, router: router, deliver: sender},
		})
		registry["email"] = emailChannel
	}

	go sendQueue.Run(ctx, sendqueue.QueueName, sendqueue.Dispatch(registry))

	verifyTokens := map[string]string{
		string(whatsapp.Provider360Dialog): os.Getenv("WHATSAPP_360DIALOG_VERIFY_TOKEN"),
		string(whatsapp.ProviderUltramsg):  os.Getenv("WHATSAPP_ULTRAMSG_VERIFY_TOKEN"),
		string(whatsapp.ProviderTwilio):    os.Getenv("WHATSAPP_TWILIO_VERIFY_TOKEN"),
	}

	webhookHandler := &ingress.Handler{
		Channels:      stores.Channels,
		Conversations: stores.Conversations,
		Messages:      stores.Messages,
		Router:        router,
		Orchestrator:  orch,
		Deliver:       sender,
		VerifyTokens:  verifyTokens,
		RateLimiter:   channels.NewWebhookRateLimiter(),
	}

	bearerVerifier := wschannel.NewHMACVerifier(cfg.JWT.Secret)

	webchatServer := wschannel.NewServer(wschannel.Config{
		Verifier:       bearerVerifier,
		Processor:      &webchatProcessor{orch: orch, router: router, conversations: stores.Conversations},
		Greetings:      &greetingResolver{flows: stores.Flows},
		History:        &historyChecker{conversations: stores.Conversations, messages: stores.Messages},
		Events:         events,
		AllowedOrigins: cfg.Webchat.AllowedOrigins,
	})

	idempotencyGuard := idempotency.New(redisClient)

	mux := http.NewServeMux()
	mux.Handle("/webhooks/{channel}", webhookHandler)
	mux.Handle("/api/v1/webchat/ws", webchatServer)
	mux.HandleFunc("/api/v1/webchat/auth", webchatAuthHandler(cfg.JWT.Secret))
	mux.HandleFunc("/health", healthHandler(pool, redisClient, mcpManager))
	mux.Handle("/api/v1/messages/send", &orchhttp.MessagesSendHandler{
		APIKey:        cfg.API.Key,
		Verifier:      &bearerVerifierAdapter{verifier: bearerVerifier},
		Conversations: stores.Conversations,
		Router:        router,
		Orchestrator:  orch,
	})
	mux.Handle("/api/widgets/{widgetKey}/config", &orchhttp.WidgetConfigHandler{Channels: stores.Channels})
	mux.Handle("/api/agents/{agentId}/public", &orchhttp.AgentPublicHandler{Flows: stores.Flows})
	mux.Handle("/api/v1/integrations/context/upsert", &orchhttp.ContextUpsertHandler{
		APIKey:        cfg.API.Key,
		Conversations: stores.Conversations,
	})
	mux.Handle("/api/v1/integrations/outbound/send", &orchhttp.OutboundSendHandler{
		APIKey:        cfg.API.Key,
		Conversations: stores.Conversations,
		Deliver:       sender,
		Idempotency:   idempotencyGuard,
	})

	var activeChannels []channels.Channel
	activeChannels = append(activeChannels, waChannel)
	if telegramChannel != nil {
		activeChannels = append(activeChannels, telegramChannel)
	}
	if emailChannel != nil {
		activeChannels = append(activeChannels, emailChannel)
	}

	for _, ch := range activeChannels {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("start %s channel: %w", ch.Name(), err)
		}
		defer func(c channels.Channel) { _ = c.Stop(context.Background()) }(ch)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("orchhub.listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		cfg.ApplyEnvOverrides()
		return cfg, nil
	}
	return config.Load(path)
}
