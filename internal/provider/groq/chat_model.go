package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/astra/backend/internal/analysis/sentiment"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"

	maxErrorBody = 64 << 10
)

// Config describes how to reach an OpenAI-compatible chat-completions endpoint.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float32
	MaxTokens   *int
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// ChatModel implements the eino chat model interface on top of the Groq API.
// Only single, non-streaming completions are supported.
type ChatModel struct {
	apiKey      string
	endpoint    string
	model       string
	temperature *float32
	maxTokens   *int
	client      *http.Client
}

var _ model.ChatModel = (*ChatModel)(nil)

// NewChatModel validates cfg and returns a ready client.
func NewChatModel(cfg *Config) (*ChatModel, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("groq api key is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	modelName := strings.TrimSpace(cfg.Model)
	if modelName == "" {
		modelName = DefaultModel
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &ChatModel{
		apiKey:      cfg.APIKey,
		endpoint:    baseURL + "/chat/completions",
		model:       modelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      client,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate sends one chat-completion request. It never retries.
func (m *ChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		Model:       &m.model,
	}, opts...)

	reqBody := chatRequest{
		Model:       *options.Model,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
		Messages:    make([]chatMessage, 0, len(input)),
	}
	for _, msg := range input {
		if msg == nil {
			continue
		}
		reqBody.Messages = append(reqBody.Messages, chatMessage{
			Role:    string(msg.Role),
			Content: sentiment.Flatten(sentiment.FromMessage(msg)),
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal groq request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create groq request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send groq request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := statusError(resp)
		log.Printf("[groq] %v", err)
		return nil, err
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("failed to decode groq response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("groq response contained no choices")
	}

	choice := completion.Choices[0]
	content, err := sentiment.DecodeContent(choice.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("unexpected groq message content: %w", err)
	}

	msg := sentiment.ToMessage(content)
	msg.ResponseMeta = &schema.ResponseMeta{FinishReason: choice.FinishReason}
	if completion.Usage != nil {
		msg.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		}
	}
	return msg, nil
}

// Stream is not supported; analyses are returned as whole messages.
func (m *ChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("groq chat model does not support streaming")
}

// BindTools is not supported.
func (m *ChatModel) BindTools(_ []*schema.ToolInfo) error {
	return errors.New("groq chat model does not support tool calling")
}

// GetType names the component for eino callbacks.
func (m *ChatModel) GetType() string {
	return "Groq"
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil && apiErr.Error.Message != "" {
		return fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, apiErr.Error.Message)
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, text)
}
