package analyzer

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/zhouzirui/astra/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/astra/backend/internal/model/analysis"
)

// Completer issues one model completion for a validated message.
type Completer interface {
	Complete(ctx context.Context, message string) (sentiment.Content, error)
}

// Service runs the analysis pipeline: request validation, model invocation,
// response normalization and response validation.
type Service struct {
	completer Completer
}

// NewService creates the pipeline around completer.
func NewService(completer Completer) *Service {
	return &Service{completer: completer}
}

// Analyze validates the raw request body and returns a fully validated result.
// The model is not called when the request is invalid. Failures are *sentiment.Error values.
func (s *Service) Analyze(ctx context.Context, body io.Reader) (analysis.Result, error) {
	req, err := sentiment.DecodeRequest(body)
	if err != nil {
		log.Printf("[analysis] rejected request: %v", err)
		return analysis.Result{}, err
	}
	return s.Run(ctx, req)
}

// Run analyzes an already validated request.
func (s *Service) Run(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	if s.completer == nil {
		return analysis.Result{}, &sentiment.Error{Kind: sentiment.KindUnknown, Err: errors.New("no model configured")}
	}

	content, err := s.completer.Complete(ctx, req.Message)
	if err != nil {
		if _, ok := sentiment.AsError(err); !ok {
			err = sentiment.NewUpstreamError(err)
		}
		log.Printf("[analysis] completion failed: %v", err)
		return analysis.Result{}, err
	}

	parsed, err := sentiment.Normalize(content)
	if err != nil {
		log.Printf("[analysis] model output is not JSON: %v", err)
		return analysis.Result{}, err
	}

	result, err := sentiment.DecodeResult(parsed)
	if err != nil {
		log.Printf("[analysis] model output failed validation: %v", err)
		return analysis.Result{}, err
	}

	log.Printf("[analysis] completed sentiment=%s confidence=%.2f highlights=%d suggestions=%d",
		result.Sentiment, result.Confidence, len(result.Highlights), len(result.Suggestions))
	return result, nil
}
