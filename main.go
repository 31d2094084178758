package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "mailmirror-backend/cmd/api"
	authRepo "mailmirror-backend/internal/auth/repository"
	authUsecase "mailmirror-backend/internal/auth/usecase"
	emailRepo "mailmirror-backend/internal/email/repository"
	emailUsecase "mailmirror-backend/internal/email/usecase"
	"mailmirror-backend/pkg/ai"
	"mailmirror-backend/pkg/config"
	"mailmirror-backend/pkg/database"
	"mailmirror-backend/pkg/eventbus"
	"mailmirror-backend/pkg/gmail"
	"mailmirror-backend/pkg/imap"
	"mailmirror-backend/pkg/mailbox"
)

const shutdownTimeout = 15 * time.Second

type stores struct {
	users    authRepo.UserRepository
	messages emailRepo.MessageRepository
	history  emailRepo.QueryHistoryRepository
	close    func()
}

func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.DBDriver {
	case "memory":
		log.Println("Using in-memory store; data is lost on restart")
		return &stores{
			users:    authRepo.NewMemoryUserRepository(),
			messages: emailRepo.NewMemoryMessageRepository(),
			history:  emailRepo.NewMemoryQueryHistoryRepository(),
			close:    func() {},
		}, nil

	case "sqlite":
		db, err := database.NewSQLiteConnection(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		users, err := authRepo.NewSQLiteUserRepository(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return &stores{
			users:    users,
			messages: emailRepo.NewSQLiteMessageRepository(db),
			history:  emailRepo.NewSQLiteQueryHistoryRepository(db),
			close:    func() { db.Close() },
		}, nil

	default:
		db, err := database.NewPostgresConnection(cfg)
		if err != nil {
			return nil, err
		}
		return &stores{
			users:    authRepo.NewUserRepository(db),
			messages: emailRepo.NewMessageRepository(db),
			history:  emailRepo.NewQueryHistoryRepository(db),
			close: func() {
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.Close()
				}
			},
		}, nil
	}
}

func main() {
	// Load configuration
	cfg := config.Load()

	st, err := openStores(cfg)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer st.close()

	// Background stages run on their own context, never a request's
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	bus := eventbus.New(ctx)

	// Remote mailboxes
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	imapService := imap.NewService()
	transport := mailbox.NewRouter(st.users, gmailService, imapService, cfg.EncryptionKey)

	// AI providers
	aiCfg := ai.Config{
		Provider:             ai.ProviderType(cfg.AIProvider),
		EmbeddingProvider:    ai.ProviderType(cfg.EmbeddingProvider),
		GeminiAPIKey:         cfg.GeminiApiKey,
		GeminiEmbeddingModel: cfg.GeminiEmbeddingModel,
		OllamaBaseURL:        cfg.OllamaBaseURL,
		OllamaModel:          cfg.OllamaModel,
		OllamaEmbedModel:     cfg.OllamaEmbedModel,
	}
	embedder, err := ai.NewEmbedder(aiCfg)
	if err != nil {
		log.Printf("Warning: Failed to initialize embedder: %v. Semantic search and enrichment will be skipped.", err)
	}
	embeddings := ai.NewEmbeddingProvider(embedder)

	// Pipeline: sync -> enrichment, wired through the bus
	fetcher := emailUsecase.NewMessageFetcher(transport, cfg.SyncPageSize, 0)
	syncCoordinator := emailUsecase.NewSyncCoordinator(fetcher, st.messages, bus, cfg.SyncMaxPages)
	emailUsecase.NewEnrichmentScheduler(st.messages, embeddings, bus, cfg.EnrichInterval, cfg.EnrichMaxBatches)
	searchEngine := emailUsecase.NewSearchEngine(st.messages, st.history, embeddings, cfg.FuzzyThreshold)

	var summaryWorker *emailUsecase.SummaryWorkerService
	summarizer, err := ai.NewSummarizerService(aiCfg)
	if err != nil {
		log.Printf("Warning: Failed to initialize AI service: %v", err)
	} else {
		summaryWorker = emailUsecase.NewSummaryWorkerService(st.messages, summarizer, bus, cfg.SummaryWorkers)
		summaryWorker.Start()
		log.Printf("Summary worker service started with provider: %s", cfg.AIProvider)
	}

	mirror := emailUsecase.NewMailMirrorUsecase(st.messages, syncCoordinator, searchEngine, summaryWorker)
	auth := authUsecase.NewAuthUsecase(st.users, cfg.JWTSecret, cfg.JWTAccessExpiry)
	handler := api.NewHandler(auth, mirror)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler.Engine(),
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}

	if summaryWorker != nil {
		summaryWorker.Stop()
	}
	bus.Close()
	searchEngine.Wait()
	log.Println("Stopped")
}
