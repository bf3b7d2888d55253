package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	LLM        LLMConfig
	Classifier ClassifierConfig
	Grammar    GrammarConfig
	Bot        BotConfig
	Heartbeat  HeartbeatConfig
	Analysis   AnalysisConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
}

type SQLiteConfig struct {
	Path string
}

// Redis backs the onboarding session store. An empty Addr falls back to the
// in-memory store, which keeps drafts local to one process.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DraftTTLMin int
}

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type ClassifierConfig struct {
	Model     string
	MaxTokens int
}

// Grammar points at a LanguageTool-compatible checking endpoint. Languages
// lists the language codes checked for every answer.
type GrammarConfig struct {
	Endpoint   string
	TimeoutSec int
	Languages  []string
}

type BotConfig struct {
	ChunkSize    int
	SystemPrompt string
}

type HeartbeatConfig struct {
	IntervalSec int
}

// Analysis allows overriding the built-in template/refusal pattern sets
// without touching pipeline code.
type AnalysisConfig struct {
	TemplatePatterns []string
	RefusalPatterns  []string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/campusbot")

	viper.SetEnvPrefix("CAMPUSBOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)

	viper.SetDefault("sqlite.path", "./data/bot_logs.db")

	viper.SetDefault("redis.addr", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.draftTTLMin", 60)

	viper.SetDefault("llm.baseURL", "https://api.deepseek.com")
	viper.SetDefault("llm.model", "deepseek-chat")
	viper.SetDefault("llm.temperature", 0.5)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 60)

	viper.SetDefault("classifier.model", "deepseek-chat")
	viper.SetDefault("classifier.maxTokens", 20)

	viper.SetDefault("grammar.endpoint", "https://api.languagetool.org")
	viper.SetDefault("grammar.timeoutSec", 10)
	viper.SetDefault("grammar.languages", []string{"ru-RU", "en-US"})

	viper.SetDefault("bot.chunkSize", 4096)
	viper.SetDefault("bot.systemPrompt", "Ты — виртуальный ассистент учебного офиса. Отвечай кратко и по делу.")

	viper.SetDefault("heartbeat.intervalSec", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
