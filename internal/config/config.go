package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// LLM settings
	LLMProvider      string `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gemini-1.5-flash"`
	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	// WhatsApp Cloud API
	WhatsAppToken      string `env:"WHATSAPP_TOKEN"`
	PhoneNumberID      string `env:"PHONE_NUMBER_ID"`
	WebhookVerifyToken string `env:"WEBHOOK_VERIFY_TOKEN"`

	// Telegram
	TelegramToken string `env:"TELEGRAM_TOKEN"`
	PublicURL     string `env:"PUBLIC_URL"`

	// Conversation state
	HistoryFilePath    string        `env:"HISTORY_FILE_PATH" envDefault:"data/history.json"`
	CheckpointInterval time.Duration `env:"CHECKPOINT_INTERVAL" envDefault:"60s"`

	// Catalog
	CatalogFilePath    string `env:"CATALOG_FILE_PATH" envDefault:"products.csv"`
	CatalogExcerptSize int    `env:"CATALOG_EXCERPT_SIZE" envDefault:"30"`
	ProductLinkBase    string `env:"PRODUCT_LINK_BASE" envDefault:"https://afaq-stores.com/product-details/"`

	// Generation
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"30s"`

	Port string `env:"PORT" envDefault:"8080"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
