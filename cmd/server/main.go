package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/egov_portal/backend/internal/ai"
	"github.com/egov_portal/backend/internal/config"
	"github.com/egov_portal/backend/internal/conversation"
	"github.com/egov_portal/backend/internal/db"
	"github.com/egov_portal/backend/internal/events"
	httpapi "github.com/egov_portal/backend/internal/http"
	"github.com/egov_portal/backend/internal/http/handlers"
	"github.com/egov_portal/backend/internal/metrics"
	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/service"
	"github.com/egov_portal/backend/internal/tickets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "egov-portal").Logger()

	metrics.Init()
	ctx := context.Background()
	checks := map[string]handlers.Pinger{}

	backend, err := aiRegistry(cfg).Get(cfg.AIProviderName())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build ai backend")
	}
	logger.Info().Str("provider", cfg.AIProviderName()).Msg("ai backend selected")

	var (
		repo        tickets.Repository
		repoBackend string
	)
	switch {
	case cfg.DatabaseURL != "":
		store, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate db")
		}
		repo, repoBackend = store, "postgres"
		checks["postgres"] = store
	case cfg.TicketsAPIURL != "":
		repo = tickets.HTTPRepository{BaseURL: cfg.TicketsAPIURL, Client: &http.Client{Timeout: cfg.RequestTimeout}}
		repoBackend = "http"
	default:
		repo, repoBackend = tickets.NewMockRepository(), "mock"
		logger.Info().Msg("using mock ticket repository")
	}

	var storage conversation.Storage
	if cfg.RedisAddr != "" {
		rs := conversation.NewRedisStorage(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ChatHistoryTTL)
		defer rs.Close()
		storage = rs
		checks["redis"] = rs
	} else {
		storage = conversation.NewMemoryStorage()
		logger.Info().Msg("using in-memory chat storage")
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitURL != "" {
		pub, err := events.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect rabbitmq")
		}
		defer pub.Close()
		publisher = pub
	}

	classifier := service.NewComplaintClassifier(backend, logger)
	desk := service.NewTicketDesk(repo, repoBackend, publisher, logger)
	gateway := service.NewAssistantGateway(backend, cfg.AITimeout, logger)

	drafts := service.NewIntakeRegistry(classifier, desk, models.DefaultDirectorates, logger)
	drafts.IdleTTL = cfg.SessionIdleTTL
	chat := service.NewChatService(gateway, storage, cfg.MaxAttachmentBytes, logger)
	chat.IdleTTL = cfg.SessionIdleTTL

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go service.RunSweepers(sweepCtx, time.Minute, logger, drafts, chat)

	router := httpapi.Router(cfg, httpapi.Services{
		Tickets:    repo,
		Desk:       desk,
		Classifier: classifier,
		Drafts:     drafts,
		Chat:       chat,
		Summarizer: &service.ArticleSummarizer{Backend: backend, Logger: logger},
		Checks:     checks,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

func aiRegistry(cfg config.Config) *ai.Registry {
	r := ai.NewRegistry()
	r.Register("gemini", func() (ai.Backend, error) {
		return &ai.GeminiBackend{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel}, nil
	})
	r.Register("openai", func() (ai.Backend, error) {
		return ai.NewOpenAIBackend(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	})
	r.Register("stub", func() (ai.Backend, error) {
		return ai.StubBackend{}, nil
	})
	return r
}
