package chat

import (
	"time"

	"github.com/zhouzirui/astra/backend/internal/model/analysis"
)

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable transcript entry. Assistant replies carry the analysis they summarise.
type Message struct {
	ID           string           `json:"id"`
	TranscriptID string           `json:"transcriptId"`
	Role         Role             `json:"role"`
	Content      string           `json:"content"`
	CreatedAt    time.Time        `json:"createdAt"`
	Analysis     *analysis.Result `json:"analysis,omitempty"`
}
