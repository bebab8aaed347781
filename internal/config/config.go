package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	AdminKey       string        `mapstructure:"ADMIN_KEY"`

	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	TicketsAPIURL string `mapstructure:"TICKETS_API_URL"`

	AIProvider    string        `mapstructure:"AI_PROVIDER"`
	GeminiAPIKey  string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel   string        `mapstructure:"GEMINI_MODEL"`
	OpenAIAPIKey  string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `mapstructure:"OPENAI_BASE_URL"`
	OpenAIModel   string        `mapstructure:"OPENAI_MODEL"`
	AITimeout     time.Duration `mapstructure:"AI_TIMEOUT"`

	MaxAttachmentBytes int64 `mapstructure:"MAX_ATTACHMENT_BYTES"`

	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	ChatHistoryTTL time.Duration `mapstructure:"CHAT_HISTORY_TTL"`

	SessionIdleTTL time.Duration `mapstructure:"SESSION_IDLE_TTL"`

	RabbitURL   string `mapstructure:"RABBIT_URL"`
	RabbitQueue string `mapstructure:"RABBIT_QUEUE"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("ADMIN_KEY", "")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("TICKETS_API_URL", "")

	v.SetDefault("AI_PROVIDER", "")
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("AI_TIMEOUT", "30s")

	v.SetDefault("MAX_ATTACHMENT_BYTES", 5<<20)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CHAT_HISTORY_TTL", "24h")

	v.SetDefault("SESSION_IDLE_TTL", "1h")

	v.SetDefault("RABBIT_URL", "")
	v.SetDefault("RABBIT_QUEUE", "complaints.routed")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// AIProviderName resolves which AI backend to construct. An explicit
// AI_PROVIDER wins; otherwise the first provider with credentials is used,
// falling back to the offline stub.
func (c Config) AIProviderName() string {
	if c.AIProvider != "" {
		return c.AIProvider
	}
	if c.GeminiAPIKey != "" {
		return "gemini"
	}
	if c.OpenAIAPIKey != "" {
		return "openai"
	}
	return "stub"
}
