package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/astra/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/astra/backend/internal/handler/apierror"
	"github.com/zhouzirui/astra/backend/internal/model/analysis"
	"github.com/zhouzirui/astra/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/astra/backend/internal/service/chat"
)

type fakeAnalyzer struct {
	calls  int
	result analysis.Result
	err    error
}

func (f *fakeAnalyzer) Run(_ context.Context, req analysis.Request) (analysis.Result, error) {
	f.calls++
	return f.result, f.err
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dial(t *testing.T, analyzer Analyzer) (*websocket.Conn, *chatservice.Service) {
	t.Helper()

	transcripts := chatservice.NewService()
	r := chi.NewRouter()
	NewWebSocketHandler(analyzer, transcripts).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, transcripts
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func readConnected(t *testing.T, conn *websocket.Conn) ConnectedPayload {
	t.Helper()
	f := readFrame(t, conn)
	if f.Type != "connected" {
		t.Fatalf("expected connected frame, got %s", f.Type)
	}
	var payload ConnectedPayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("decode connected: %v", err)
	}
	return payload
}

func sendMessage(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()
	data, _ := json.Marshal(map[string]string{"message": text})
	if err := conn.WriteJSON(inboundMessage{Type: "message", Data: data}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWebSocketOpensTranscriptWithGreeting(t *testing.T) {
	conn, transcripts := dial(t, &fakeAnalyzer{})

	payload := readConnected(t, conn)
	if payload.TranscriptID == "" {
		t.Fatal("expected transcript id")
	}
	if len(payload.Messages) != 1 || payload.Messages[0].Content != chatservice.Greeting {
		t.Fatalf("unexpected initial messages: %+v", payload.Messages)
	}
	if _, err := transcripts.GetTranscript(context.Background(), payload.TranscriptID); err != nil {
		t.Fatalf("transcript should exist while connected: %v", err)
	}
}

func TestWebSocketReturnsAnalysisMessage(t *testing.T) {
	fake := &fakeAnalyzer{result: analysis.Result{
		Summary:     "Mixed feelings.",
		Sentiment:   analysis.Neutral,
		Confidence:  0.62,
		Mood:        "conflicted",
		Tone:        "candid",
		Highlights:  []analysis.Insight{{Title: "a", Detail: "b"}, {Title: "c", Detail: "d"}},
		Suggestions: []string{"x", "y"},
	}}
	conn, _ := dial(t, fake)
	payload := readConnected(t, conn)

	sendMessage(t, conn, "Great onboarding, poor support")

	f := readFrame(t, conn)
	if f.Type != "message" {
		t.Fatalf("expected message frame, got %s: %s", f.Type, f.Data)
	}
	var reply chat.Message
	if err := json.Unmarshal(f.Data, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Role != chat.RoleAssistant || reply.Content != "Mixed feelings." || reply.Analysis == nil {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if reply.TranscriptID != payload.TranscriptID || reply.Analysis.Confidence != 0.62 {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	if err := conn.WriteJSON(inboundMessage{Type: "history"}); err != nil {
		t.Fatalf("write history: %v", err)
	}
	f = readFrame(t, conn)
	var history ConnectedPayload
	if err := json.Unmarshal(f.Data, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if f.Type != "history" || len(history.Messages) != 3 {
		t.Fatalf("expected greeting, user and reply, got %s %+v", f.Type, history.Messages)
	}
	if history.Messages[1].Role != chat.RoleUser || history.Messages[1].Content != "Great onboarding, poor support" {
		t.Fatalf("unexpected user entry: %+v", history.Messages[1])
	}
}

func TestWebSocketRejectsInvalidMessage(t *testing.T) {
	fake := &fakeAnalyzer{}
	conn, _ := dial(t, fake)
	readConnected(t, conn)

	sendMessage(t, conn, "")

	f := readFrame(t, conn)
	var payload ErrorPayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if f.Type != "error" || payload.Error != apierror.MessageInvalidRequest || payload.Retryable {
		t.Fatalf("unexpected error frame: %s %+v", f.Type, payload)
	}
	if fake.calls != 0 {
		t.Fatalf("expected no model call, got %d", fake.calls)
	}

	if err := conn.WriteJSON(inboundMessage{Type: "history"}); err != nil {
		t.Fatalf("write history: %v", err)
	}
	var history ConnectedPayload
	json.Unmarshal(readFrame(t, conn).Data, &history)
	if len(history.Messages) != 1 {
		t.Fatalf("invalid messages must not be recorded, got %+v", history.Messages)
	}
}

func TestWebSocketReportsMalformedReplyAsRetryable(t *testing.T) {
	fake := &fakeAnalyzer{err: sentiment.NewMalformedResponseError(errors.New("not json"))}
	conn, _ := dial(t, fake)
	readConnected(t, conn)

	sendMessage(t, conn, "hello")

	f := readFrame(t, conn)
	var payload ErrorPayload
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if f.Type != "error" || payload.Error != apierror.MessageMalformed || !payload.Retryable {
		t.Fatalf("unexpected error frame: %s %+v", f.Type, payload)
	}
}

func TestWebSocketRejectsUnknownFrameType(t *testing.T) {
	conn, _ := dial(t, &fakeAnalyzer{})
	readConnected(t, conn)

	if err := conn.WriteJSON(inboundMessage{Type: "audio"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := readFrame(t, conn); f.Type != "error" {
		t.Fatalf("expected error frame, got %s", f.Type)
	}
}

func TestWebSocketClosesTranscriptOnDisconnect(t *testing.T) {
	conn, transcripts := dial(t, &fakeAnalyzer{})
	payload := readConnected(t, conn)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := transcripts.GetTranscript(context.Background(), payload.TranscriptID); errors.Is(err, chatservice.ErrTranscriptNotFound) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("transcript was not closed after disconnect")
}
