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

	"github.com/zhouzirui/astra/backend/internal/provider/groq"
)

// Provider names a supported chat-completion backend.
type Provider string

const (
	ProviderGroq Provider = "groq"
	ProviderArk  Provider = "ark"
)

const (
	defaultTemperature = 0.4
	defaultMaxTokens   = 700
	defaultTimeout     = 30 * time.Second
)

// Config aggregates every setting of the service. It is loaded once at start-up
// and passed to the components that need it.
type Config struct {
	Server ServerConfig
	AI     AIConfig
}

// Load reads configuration from the environment. A missing credential for the
// selected provider is an error.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	if strings.Contains(port, ":") {
		// Allow ":8080" and "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// AIConfig describes the upstream model and the fixed generation parameters.
type AIConfig struct {
	Provider    Provider
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// CredentialEnv names the environment variable holding the credential for the configured provider.
func (c AIConfig) CredentialEnv() string {
	if c.Provider == ProviderArk {
		return "ARK_API_KEY"
	}
	return "GROQ_API_KEY"
}

// NewChatModel builds the chat model for the configured provider.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	temperature := c.Temperature
	maxTokens := c.MaxTokens

	switch c.Provider {
	case ProviderArk:
		timeout := c.Timeout
		retries := 0
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.BaseURL,
			Region:      c.Region,
			APIKey:      c.APIKey,
			AccessKey:   c.AccessKey,
			SecretKey:   c.SecretKey,
			Model:       c.Model,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
			Timeout:     &timeout,
			RetryTimes:  &retries,
		})
	case ProviderGroq:
		return groq.NewChatModel(&groq.Config{
			APIKey:      c.APIKey,
			BaseURL:     c.BaseURL,
			Model:       c.Model,
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
			Timeout:     c.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported AI provider %q", c.Provider)
	}
}

func loadAIConfig() (AIConfig, error) {
	provider := Provider(strings.ToLower(getEnvOrDefault("AI_PROVIDER", string(ProviderGroq))))

	temperature := float32(defaultTemperature)
	if override, err := parseOptionalFloatEnv("AI_TEMPERATURE"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		temperature = float32(*override)
	}

	maxTokens := defaultMaxTokens
	if override, err := parseOptionalIntEnv("AI_MAX_TOKENS"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AIConfig{}, fmt.Errorf("invalid AI_MAX_TOKENS value %d: must be positive", *override)
		}
		maxTokens = *override
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", defaultTimeout)
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:    provider,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
	}

	switch provider {
	case ProviderGroq:
		cfg.APIKey = strings.TrimSpace(os.Getenv("GROQ_API_KEY"))
		cfg.BaseURL = getEnvOrDefault("GROQ_BASE_URL", groq.DefaultBaseURL)
		cfg.Model = getEnvOrDefault("GROQ_MODEL", groq.DefaultModel)
		if cfg.APIKey == "" {
			return AIConfig{}, fmt.Errorf("invalid environment variables: GROQ_API_KEY is required")
		}
	case ProviderArk:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
		cfg.AccessKey = strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY"))
		cfg.SecretKey = strings.TrimSpace(os.Getenv("ARK_SECRET_KEY"))
		cfg.Model = strings.TrimSpace(os.Getenv("ARK_MODEL"))
		cfg.BaseURL = getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")
		cfg.Region = getEnvOrDefault("ARK_REGION", "cn-beijing")
		if cfg.APIKey == "" && (cfg.AccessKey == "" || cfg.SecretKey == "") {
			return AIConfig{}, fmt.Errorf("invalid environment variables: ARK_API_KEY or ARK_ACCESS_KEY + ARK_SECRET_KEY is required")
		}
		if cfg.Model == "" {
			return AIConfig{}, fmt.Errorf("invalid environment variables: ARK_MODEL is required")
		}
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q: want groq or ark", provider)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var items []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// parseDurationEnv accepts Go durations ("45s") or a bare number of seconds.
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
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
