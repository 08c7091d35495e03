package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type StoreBackend string

const (
	BackendFile   StoreBackend = "file"
	BackendSQLite StoreBackend = "sqlite"
)

// ErrMissingCredential is returned when the selected provider has no API credential.
var ErrMissingCredential = errors.New("missing llm credential")

type Config struct {
	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"gemini"`
	GoogleAPIKey     string      `env:"GOOGLE_API_KEY"`
	GeminiModel      string      `env:"GEMINI_MODEL" envDefault:"gemini-1.5-pro-latest"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`

	// Storage
	ChatStorage      string       `env:"CHAT_STORAGE" envDefault:"chat_logs"`
	ChatStoreBackend StoreBackend `env:"CHAT_STORE_BACKEND" envDefault:"file"`
	ChatSQLitePath   string       `env:"CHAT_SQLITE_PATH" envDefault:"chat_logs/chat.db"`
	LogFilePath      string       `env:"LOG_FILE_PATH" envDefault:"logs/log.jsonl"`

	// Output pacing
	TypingDelay time.Duration `env:"TYPING_DELAY" envDefault:"20ms"`

	// Telegram front-end
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	AdminUserID      int64  `env:"ADMIN_USER"`
	ReportSchedule   string `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`
	MessageParseMode string `env:"MESSAGE_PARSE_MODE" envDefault:"Markdown"`
}

// Load parses the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// New is Load that terminates the process on failure.
func New() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Validate checks that the credential of the selected provider is present
// and that enumerated settings hold known values.
func (c *Config) Validate() error {
	c.LLMProvider = LLMProvider(strings.ToLower(strings.TrimSpace(string(c.LLMProvider))))
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("%w: GOOGLE_API_KEY is required for provider %s", ErrMissingCredential, c.LLMProvider)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for provider %s", ErrMissingCredential, c.LLMProvider)
		}
	case ProviderYandex:
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			return fmt.Errorf("%w: YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID are required for provider %s", ErrMissingCredential, c.LLMProvider)
		}
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}

	switch c.ChatStoreBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown chat store backend: %s", c.ChatStoreBackend)
	}
	if c.TypingDelay < 0 {
		c.TypingDelay = 0
	}
	return nil
}

// Model returns the model name configured for the selected provider.
func (c *Config) Model() string {
	switch c.LLMProvider {
	case ProviderGemini:
		return c.GeminiModel
	case ProviderOpenAI:
		return c.OpenAIModel
	default:
		return ""
	}
}
