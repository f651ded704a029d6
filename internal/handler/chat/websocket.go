package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/astra/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/astra/backend/internal/handler/apierror"
	"github.com/zhouzirui/astra/backend/internal/model/analysis"
	"github.com/zhouzirui/astra/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/astra/backend/internal/service/chat"
)

const (
	pingInterval = 54 * time.Second
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	maxFrameSize = 64 << 10
)

// Analyzer runs the model step on a validated request.
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request) (analysis.Result, error)
}

// WebSocketHandler serves a chat transcript over a websocket connection.
type WebSocketHandler struct {
	analyzer    Analyzer
	transcripts *chatservice.Service
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler creates the chat transport.
func NewWebSocketHandler(analyzer Analyzer, transcripts *chatservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		analyzer:    analyzer,
		transcripts: transcripts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint on r.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ConnectedPayload is sent once the transcript is open.
type ConnectedPayload struct {
	TranscriptID string         `json:"transcriptId"`
	Messages     []chat.Message `json:"messages"`
}

// ErrorPayload mirrors the HTTP error body plus a retry hint.
type ErrorPayload struct {
	Error     string `json:"error"`
	Details   any    `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	transcript, err := h.transcripts.Open(ctx)
	if err != nil {
		log.Printf("[websocket] open transcript failed: %v", err)
		return
	}
	defer h.transcripts.Close(context.Background(), transcript.ID)

	log.Printf("[websocket] new connection transcript=%s", transcript.ID)

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	messages, err := h.transcripts.LoadMessages(ctx, transcript.ID)
	if err != nil {
		log.Printf("[websocket] load transcript failed: %v", err)
		return
	}
	h.send(conn, "connected", ConnectedPayload{TranscriptID: transcript.ID, Messages: messages})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Printf("[websocket] read error transcript=%s: %v", transcript.ID, err)
			}
			log.Printf("[websocket] connection closed transcript=%s", transcript.ID)
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		h.handleMessage(ctx, conn, transcript.ID, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *websocket.Conn, transcriptID string, msg *inboundMessage) {
	switch msg.Type {
	case "message":
		h.handleChatMessage(ctx, conn, transcriptID, msg.Data)
	case "history":
		messages, err := h.transcripts.LoadMessages(ctx, transcriptID)
		if err != nil {
			h.sendError(conn, apierror.From(err))
			return
		}
		h.send(conn, "history", ConnectedPayload{TranscriptID: transcriptID, Messages: messages})
	default:
		h.sendError(conn, apierror.From(sentiment.NewValidationError(sentiment.SourceClient, sentiment.Issue{
			Path:    "type",
			Code:    "unsupported_type",
			Message: "unsupported message type: " + msg.Type,
		})))
	}
}

// handleChatMessage validates the frame, records the user entry, then runs the
// model and records the reply. An invalid frame is not recorded.
func (h *WebSocketHandler) handleChatMessage(ctx context.Context, conn *websocket.Conn, transcriptID string, raw json.RawMessage) {
	req, err := sentiment.DecodeRequest(bytes.NewReader(raw))
	if err != nil {
		h.sendError(conn, apierror.From(err))
		return
	}

	if _, err := h.transcripts.AppendUser(ctx, transcriptID, req.Message); err != nil {
		log.Printf("[websocket] append user message failed: %v", err)
		h.sendError(conn, apierror.From(err))
		return
	}

	result, err := h.analyzer.Run(ctx, req)
	if err != nil {
		h.sendError(conn, apierror.From(err))
		return
	}

	reply, err := h.transcripts.AppendAnalysis(ctx, transcriptID, result)
	if err != nil {
		log.Printf("[websocket] append analysis failed: %v", err)
		h.sendError(conn, apierror.From(err))
		return
	}

	h.send(conn, "message", reply)
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msgType string, data any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(outgoingMessage{Type: msgType, Data: data}); err != nil {
		log.Printf("[websocket] write %s failed: %v", msgType, err)
	}
}

func (h *WebSocketHandler) sendError(conn *websocket.Conn, resp apierror.Response) {
	h.send(conn, "error", ErrorPayload{
		Error:     resp.Body.Error,
		Details:   resp.Body.Details,
		Retryable: resp.Retryable,
	})
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
