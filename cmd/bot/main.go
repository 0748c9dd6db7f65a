package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"storebot/internal/bot"
	"storebot/internal/catalog"
	"storebot/internal/checkpoint"
	"storebot/internal/config"
	"storebot/internal/conversation"
	"storebot/internal/enrich"
	"storebot/internal/llm"
	"storebot/internal/prompt"
	"storebot/internal/storage"
	"storebot/internal/telegram"
	"storebot/internal/whatsapp"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if cfg.LLMProvider == llm.ProviderOpenAI && cfg.OpenAIAPIKey == "" {
		log.Fatalf("OPENAI_API_KEY is required")
	}

	cat, err := catalog.Load(cfg.CatalogFilePath, cfg.ProductLinkBase)
	if err != nil {
		log.Printf("catalog unavailable, continuing without products: %v", err)
		cat = catalog.New(nil, cfg.ProductLinkBase)
	} else {
		log.Printf("loaded %d products from %s", cat.Len(), cfg.CatalogFilePath)
	}

	store := conversation.NewStore()
	snapFile, err := storage.NewSnapshotFile(cfg.HistoryFilePath)
	if err != nil {
		log.Fatalf("failed to init history file: %v", err)
	}
	snap, err := snapFile.Load()
	if err != nil {
		log.Printf("history snapshot unreadable, starting empty: %v", err)
	}
	store.Restore(snap)
	log.Printf("loaded %d conversations from %s", len(snap), cfg.HistoryFilePath)

	factory := &llm.Factory{
		OpenAIAPIKey:     cfg.OpenAIAPIKey,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		YandexOAuthToken: cfg.YandexOAuthToken,
		YandexFolderID:   cfg.YandexFolderID,
	}
	gateway, err := factory.CreateClient(cfg.LLMProvider, cfg.OpenAIModel)
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}

	enricher := enrich.NewClient()
	assembler := prompt.NewAssembler(cat, cfg.CatalogExcerptSize)
	svc := bot.NewService(store, assembler, gateway, cfg.GenerationTimeout)

	checkpointer := checkpoint.New(store, snapFile, cfg.CheckpointInterval)
	if err := checkpointer.Start(); err != nil {
		log.Fatalf("failed to start checkpointer: %v", err)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	wa := whatsapp.New(cfg.WhatsAppToken, cfg.PhoneNumberID, cfg.WebhookVerifyToken, svc, enricher)
	r.Get("/whatsapp", wa.Verify)
	r.Post("/whatsapp", wa.Receive)

	if cfg.TelegramToken != "" {
		tg, err := telegram.New(cfg.TelegramToken, svc, enricher)
		if err != nil {
			log.Fatalf("failed to create telegram bot: %v", err)
		}
		if cfg.PublicURL != "" {
			if err := tg.RegisterWebhook(cfg.PublicURL); err != nil {
				log.Printf("telegram webhook registration failed: %v", err)
			}
		}
		r.Post("/telegram", tg.HandleWebhook)
	}

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	checkpointer.Stop()
}
