package sentiment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Content is the body of a completion message. It is either TextContent or ChunkContent.
type Content interface {
	isContent()
}

// TextContent is a reply delivered as one plain string.
type TextContent string

// ChunkContent is a reply delivered as an ordered chunk sequence.
type ChunkContent []Chunk

func (TextContent) isContent()  {}
func (ChunkContent) isContent() {}

// Chunk is one element of ChunkContent: TextChunk, FieldChunk or OpaqueChunk.
type Chunk interface {
	isChunk()
}

// TextChunk is a bare string element.
type TextChunk string

// FieldChunk is an object element exposing a string "text" field.
type FieldChunk struct {
	Text string
}

// OpaqueChunk is any element of another shape. It contributes no text.
type OpaqueChunk struct {
	Raw json.RawMessage
}

func (TextChunk) isChunk()   {}
func (FieldChunk) isChunk()  {}
func (OpaqueChunk) isChunk() {}

// DecodeContent decodes the "content" field of a chat-completion message.
// A missing or null value decodes to empty text.
func DecodeContent(raw json.RawMessage) (Content, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return TextContent(""), nil
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, fmt.Errorf("decode text content: %w", err)
		}
		return TextContent(text), nil
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(trimmed, &elements); err != nil {
			return nil, fmt.Errorf("decode chunk content: %w", err)
		}
		chunks := make(ChunkContent, 0, len(elements))
		for _, element := range elements {
			chunks = append(chunks, decodeChunk(element))
		}
		return chunks, nil
	default:
		return nil, fmt.Errorf("unsupported content shape %q", shapeOf(trimmed))
	}
}

func decodeChunk(raw json.RawMessage) Chunk {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return OpaqueChunk{Raw: raw}
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err == nil {
			return TextChunk(text)
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			break
		}
		var text string
		if value, ok := fields["text"]; ok && json.Unmarshal(value, &text) == nil {
			return FieldChunk{Text: text}
		}
	}
	return OpaqueChunk{Raw: raw}
}

func shapeOf(raw []byte) string {
	switch raw[0] {
	case '{':
		return "object"
	case 't', 'f':
		return "boolean"
	default:
		return "number"
	}
}

// Flatten concatenates content into one string, chunks in order.
func Flatten(c Content) string {
	switch v := c.(type) {
	case TextContent:
		return string(v)
	case ChunkContent:
		var b strings.Builder
		for _, chunk := range v {
			b.WriteString(chunkText(chunk))
		}
		return b.String()
	default:
		return ""
	}
}

func chunkText(c Chunk) string {
	switch v := c.(type) {
	case TextChunk:
		return string(v)
	case FieldChunk:
		return v.Text
	default:
		return ""
	}
}

// FromMessage reads the content of an eino message. Multi-part content takes
// precedence over the plain Content string; non-text parts become opaque chunks.
func FromMessage(msg *schema.Message) Content {
	if msg == nil {
		return TextContent("")
	}
	if len(msg.MultiContent) == 0 {
		return TextContent(msg.Content)
	}

	chunks := make(ChunkContent, 0, len(msg.MultiContent))
	for _, part := range msg.MultiContent {
		if part.Type == schema.ChatMessagePartTypeText {
			chunks = append(chunks, FieldChunk{Text: part.Text})
			continue
		}
		chunks = append(chunks, OpaqueChunk{})
	}
	return chunks
}

// ToMessage converts content into an assistant message. Opaque chunks carry
// no text and are dropped.
func ToMessage(c Content) *schema.Message {
	chunks, ok := c.(ChunkContent)
	if !ok {
		return schema.AssistantMessage(Flatten(c), nil)
	}

	parts := make([]schema.ChatMessagePart, 0, len(chunks))
	for _, chunk := range chunks {
		switch v := chunk.(type) {
		case TextChunk:
			parts = append(parts, schema.ChatMessagePart{Type: schema.ChatMessagePartTypeText, Text: string(v)})
		case FieldChunk:
			parts = append(parts, schema.ChatMessagePart{Type: schema.ChatMessagePartTypeText, Text: v.Text})
		}
	}
	return &schema.Message{Role: schema.Assistant, MultiContent: parts}
}
