package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/astra/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/astra/backend/internal/config"
)

// Service issues analysis completions against the configured chat model.
type Service struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService compiles the analysis chain around chatModel.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg config.AIConfig) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile analysis chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		cfg:       cfg,
		chain:     runnable,
	}, nil
}

// Complete sends message to the model exactly once and returns the reply content.
// Every failure, including an empty reply or an expired deadline, is an upstream error.
func (s *Service) Complete(ctx context.Context, message string) (sentiment.Content, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	input := map[string]any{
		"system": SystemPrompt(),
		"query":  message,
	}

	opts := []model.Option{
		model.WithTemperature(s.cfg.Temperature),
		model.WithMaxTokens(s.cfg.MaxTokens),
	}
	if s.cfg.Model != "" {
		opts = append(opts, model.WithModel(s.cfg.Model))
	}

	started := time.Now()
	response, err := s.chain.Invoke(ctx, input, compose.WithChatModelOption(opts...))
	if err != nil {
		return nil, sentiment.NewUpstreamError(fmt.Errorf("failed to run analysis chain: %w", err))
	}

	content := sentiment.FromMessage(response)
	if strings.TrimSpace(sentiment.Flatten(content)) == "" {
		return nil, sentiment.Upstreamf("model returned an empty completion")
	}

	log.Printf("[ai] completion received provider=%s length=%d elapsed=%s", s.cfg.Provider, len(sentiment.Flatten(content)), time.Since(started).Round(time.Millisecond))
	return content, nil
}
