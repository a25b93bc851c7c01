package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// 模型提供方
const (
	ProviderGemini = "gemini"
	ProviderArk    = "ark"
)

const (
	DefaultGeminiModel    = "gemini-2.0-flash-001"
	DefaultTemperature    = 0.7
	DefaultRequestTimeout = 30 * time.Second
	DefaultHistoryWindow  = 20
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Chat   ChatConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Chat: chat}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider       string
	GeminiAPIKey   string
	GeminiModel    string
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    float32
	RequestTimeout time.Duration
}

// Enabled 表示当前提供方是否具备必需的密钥。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderGemini:
		return c.GeminiAPIKey != "" && c.GeminiModel != ""
	case ProviderArk:
		return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
	default:
		return false
	}
}

// NewChatModel 使用 Ark 配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Provider != ProviderArk || !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	temperature := c.Temperature
	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		Temperature: &temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature := float32(DefaultTemperature)
	if override, err := parseOptionalFloat32Env("AI_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 0 || *override > 2 {
			return AIConfig{}, fmt.Errorf("invalid AI_TEMPERATURE value %v: must be within [0, 2]", *override)
		}
		temperature = *override
	}

	timeout, err := parseDurationEnv("AI_REQUEST_TIMEOUT", DefaultRequestTimeout)
	if err != nil {
		return AIConfig{}, err
	}
	if timeout <= 0 {
		return AIConfig{}, fmt.Errorf("invalid AI_REQUEST_TIMEOUT value %s: must be positive", timeout)
	}

	cfg := AIConfig{
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:    getEnvOrDefault("GEMINI_MODEL", DefaultGeminiModel),
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("Model")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		RequestTimeout: timeout,
	}

	provider := strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER")))
	switch provider {
	case "":
		// 未显式指定时，优先使用 Gemini 凭证。
		if cfg.GeminiAPIKey != "" || cfg.APIKey == "" {
			provider = ProviderGemini
		} else {
			provider = ProviderArk
		}
	case ProviderGemini, ProviderArk:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", provider)
	}
	cfg.Provider = provider

	return cfg, nil
}

// ChatConfig 描述人设默认值、上下文窗口与打字节奏。
type ChatConfig struct {
	HistoryWindow             int
	DefaultPersonaName        string
	DefaultPersonaDescription string
	FallbackReply             string
	TypingPerChar             time.Duration
	TypingMin                 time.Duration
	TypingMax                 time.Duration
}

func loadChatConfig() (ChatConfig, error) {
	window := DefaultHistoryWindow
	if override, err := parseOptionalIntEnv("CHAT_HISTORY_WINDOW"); err != nil {
		return ChatConfig{}, err
	} else if override != nil {
		if *override < 1 {
			window = 1
		} else {
			window = *override
		}
	}

	perChar, err := parseDurationEnv("TYPING_PER_CHAR", 30*time.Millisecond)
	if err != nil {
		return ChatConfig{}, err
	}
	minDelay, err := parseDurationEnv("TYPING_MIN", time.Second)
	if err != nil {
		return ChatConfig{}, err
	}
	maxDelay, err := parseDurationEnv("TYPING_MAX", 4*time.Second)
	if err != nil {
		return ChatConfig{}, err
	}
	if minDelay < 0 || maxDelay < minDelay {
		return ChatConfig{}, fmt.Errorf("invalid typing delay range: min=%s max=%s", minDelay, maxDelay)
	}

	return ChatConfig{
		HistoryWindow:             window,
		DefaultPersonaName:        getEnvOrDefault("CHAT_DEFAULT_PERSONA_NAME", "Hazel"),
		DefaultPersonaDescription: getEnvOrDefault("CHAT_DEFAULT_PERSONA_DESCRIPTION", "friendly, casual, and sometimes witty"),
		FallbackReply:             getEnvOrDefault("CHAT_FALLBACK_REPLY", "Sorry, I can't respond right now. Network issues 😕"),
		TypingPerChar:             perChar,
		TypingMin:                 minDelay,
		TypingMax:                 maxDelay,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
