package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/docbot/relay/internal/auth"
	"github.com/docbot/relay/internal/channel"
	"github.com/docbot/relay/internal/channel/adapters/telegram"
	"github.com/docbot/relay/internal/channel/adapters/whatsapp"
	"github.com/docbot/relay/internal/chat"
	"github.com/docbot/relay/internal/config"
	"github.com/docbot/relay/internal/conversation"
	"github.com/docbot/relay/internal/conversation/flow"
	"github.com/docbot/relay/internal/db"
	"github.com/docbot/relay/internal/handlers"
	"github.com/docbot/relay/internal/logger"
	"github.com/docbot/relay/internal/media"
	"github.com/docbot/relay/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server",
	Run: func(_ *cobra.Command, _ []string) {
		runServe()
	},
}

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBPool,
			provideStore,
			provideIngestor,
			provideNormalizer,
			provideCompleter,
			provideResolver,
			provideWhatsAppClient,
			provideTelegramClient,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideWhatsAppWebhookHandler),
			provideServerHandler(provideTelegramWebhookHandler),
			provideServer,
		),
		fx.Invoke(startServer),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.Postgres); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { pool.Close(); return nil }})
	return pool, nil
}

func provideStore(log *slog.Logger, pool *pgxpool.Pool) conversation.Store {
	return conversation.NewPGStore(log, pool)
}

func provideIngestor(log *slog.Logger) *media.Ingestor {
	return media.NewIngestor(log)
}

func provideNormalizer(log *slog.Logger, ingestor *media.Ingestor) *channel.Normalizer {
	return channel.NewNormalizer(log, ingestor)
}

func provideCompleter(log *slog.Logger, cfg config.Config) chat.Completer {
	ccfg := cfg.Completion
	return chat.NewOpenAIClient(log, ccfg.APIKey, ccfg.BaseURL, ccfg.Model,
		time.Duration(ccfg.TimeoutSeconds)*time.Second)
}

func provideResolver(log *slog.Logger, store conversation.Store, completer chat.Completer, normalizer *channel.Normalizer) *flow.Resolver {
	return flow.NewResolver(log, store, completer, normalizer)
}

func provideWhatsAppClient(log *slog.Logger, cfg config.Config) *whatsapp.Client {
	wcfg := cfg.WhatsApp
	return whatsapp.NewClient(log, wcfg.GraphBaseURL, wcfg.PhoneNumberID, wcfg.AccessToken)
}

func provideTelegramClient(log *slog.Logger, cfg config.Config) (*telegram.Client, error) {
	return telegram.NewClient(log, cfg.Telegram.BotToken)
}

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log)
}

func provideWhatsAppWebhookHandler(log *slog.Logger, cfg config.Config, resolver *flow.Resolver, client *whatsapp.Client) *whatsapp.WebhookHandler {
	wcfg := cfg.WhatsApp
	return whatsapp.NewWebhookHandler(log,
		auth.NewSignatureVerifier(wcfg.AppSecret),
		auth.NewTokenVerifier(wcfg.VerifyToken),
		resolver, client)
}

func provideTelegramWebhookHandler(log *slog.Logger, cfg config.Config, resolver *flow.Resolver, client *telegram.Client) *telegram.WebhookHandler {
	return telegram.NewWebhookHandler(log,
		auth.NewTokenVerifier(cfg.Telegram.WebhookSecret),
		resolver, client)
}

type serverParams struct {
	fx.In
	Logger   *slog.Logger
	Config   config.Config
	Handlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.New(params.Logger, params.Config.Server.Addr, params.Handlers)
}

func startServer(lc fx.Lifecycle, srv *server.Server, log *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					log.Error("server stopped", slog.Any("error", err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Stop(ctx)
		},
	})
}
