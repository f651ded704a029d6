package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/astra/backend/internal/model/analysis"
	"github.com/zhouzirui/astra/backend/internal/model/chat"
)

// Greeting opens every transcript.
const Greeting = "Hey, I'm Astra. Drop any text—customer feedback, release notes, journal entries—and I'll instantly distill the sentiment, tone, and action items for you."

var (
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrEmptyContent       = errors.New("message content is required")
)

// Service keeps in-memory transcripts. Entries are append-only and a
// transcript disappears once it is closed.
type Service struct {
	mu          sync.RWMutex
	transcripts map[string]chat.Transcript
	messages    map[string][]chat.Message
	now         func() time.Time
}

// NewService creates an empty transcript store.
func NewService() *Service {
	return &Service{
		transcripts: make(map[string]chat.Transcript),
		messages:    make(map[string][]chat.Message),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Open starts a transcript seeded with the assistant greeting.
func (s *Service) Open(_ context.Context) (chat.Transcript, error) {
	transcript := chat.Transcript{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
	}
	greeting := chat.Message{
		ID:           uuid.NewString(),
		TranscriptID: transcript.ID,
		Role:         chat.RoleAssistant,
		Content:      Greeting,
		CreatedAt:    transcript.CreatedAt,
	}

	s.mu.Lock()
	s.transcripts[transcript.ID] = transcript
	s.messages[transcript.ID] = append(make([]chat.Message, 0, 16), greeting)
	s.mu.Unlock()

	return transcript, nil
}

// AppendUser records a submitted message.
func (s *Service) AppendUser(ctx context.Context, transcriptID, content string) (chat.Message, error) {
	if content == "" {
		return chat.Message{}, ErrEmptyContent
	}
	return s.append(ctx, chat.Message{TranscriptID: transcriptID, Role: chat.RoleUser, Content: content})
}

// AppendAnalysis records an assistant reply carrying result. The reply content is the summary.
func (s *Service) AppendAnalysis(ctx context.Context, transcriptID string, result analysis.Result) (chat.Message, error) {
	return s.append(ctx, chat.Message{
		TranscriptID: transcriptID,
		Role:         chat.RoleAssistant,
		Content:      result.Summary,
		Analysis:     &result,
	})
}

func (s *Service) append(_ context.Context, message chat.Message) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transcripts[message.TranscriptID]; !ok {
		return chat.Message{}, ErrTranscriptNotFound
	}

	message.ID = uuid.NewString()
	message.CreatedAt = s.now()

	s.messages[message.TranscriptID] = append(s.messages[message.TranscriptID], message)
	return message, nil
}

// GetTranscript retrieves a transcript by identifier.
func (s *Service) GetTranscript(_ context.Context, transcriptID string) (chat.Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	transcript, ok := s.transcripts[transcriptID]
	if !ok {
		return chat.Transcript{}, ErrTranscriptNotFound
	}
	return transcript, nil
}

// LoadMessages returns a copy of the transcript entries in submission order.
func (s *Service) LoadMessages(_ context.Context, transcriptID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[transcriptID]
	if !ok {
		return nil, ErrTranscriptNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Close discards a transcript and all of its entries.
func (s *Service) Close(_ context.Context, transcriptID string) {
	s.mu.Lock()
	delete(s.transcripts, transcriptID)
	delete(s.messages, transcriptID)
	s.mu.Unlock()
}
