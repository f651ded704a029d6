package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/astra/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/astra/backend/internal/handler/apierror"
	"github.com/zhouzirui/astra/backend/internal/model/analysis"
	"github.com/zhouzirui/astra/backend/internal/service/analyzer"
)

const neutralJSON = `{"summary":"Onboarding delights while support disappoints.","sentiment":"neutral","confidence":0.62,"mood":"conflicted","tone":"candid","highlights":[{"title":"Onboarding","detail":"Great."},{"title":"Support","detail":"Poor."}],"suggestions":["Speed up support.","Keep onboarding."]}`

type fakeCompleter struct {
	calls   int
	content sentiment.Content
	err     error
}

func (f *fakeCompleter) Complete(context.Context, string) (sentiment.Content, error) {
	f.calls++
	return f.content, f.err
}

func setupRouter(completer *fakeCompleter) *chi.Mux {
	handler := New(analyzer.NewService(completer))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestGenerateReturnsAnalysis(t *testing.T) {
	completer := &fakeCompleter{content: sentiment.TextContent(neutralJSON)}
	resp := post(setupRouter(completer), `{"message":"Great onboarding, poor support"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body struct {
		Analysis analysis.Result `json:"analysis"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Analysis.Sentiment != analysis.Neutral || body.Analysis.Confidence != 0.62 {
		t.Fatalf("unexpected analysis: %+v", body.Analysis)
	}

	var want, got map[string]any
	json.Unmarshal([]byte(neutralJSON), &want)
	var envelope map[string]map[string]any
	json.Unmarshal(resp.Body.Bytes(), &envelope)
	got = envelope["analysis"]
	wantJSON, _ := json.Marshal(want)
	gotJSON, _ := json.Marshal(got)
	if !bytes.Equal(wantJSON, gotJSON) {
		t.Fatalf("analysis not embedded verbatim:\n got %s\nwant %s", gotJSON, wantJSON)
	}
}

func TestGenerateEmptyMessageSkipsModel(t *testing.T) {
	completer := &fakeCompleter{content: sentiment.TextContent(neutralJSON)}
	resp := post(setupRouter(completer), `{"message":""}`)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if completer.calls != 0 {
		t.Fatalf("model must not be called for invalid input")
	}

	var body struct {
		Error   string            `json:"error"`
		Details []sentiment.Issue `json:"details"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Error != apierror.MessageInvalidRequest || len(body.Details) != 1 || body.Details[0].Path != "message" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestGenerateRejectsOversizedBody(t *testing.T) {
	completer := &fakeCompleter{content: sentiment.TextContent(neutralJSON)}
	resp := post(setupRouter(completer), `{"message":"`+strings.Repeat("a", maxBodyBytes)+`"}`)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if completer.calls != 0 {
		t.Fatalf("model must not be called for oversized input")
	}
}

func TestGenerateProseIsBadGateway(t *testing.T) {
	prose := "I think this text is fairly neutral overall, with some praise and some complaints."
	completer := &fakeCompleter{content: sentiment.TextContent(prose)}
	resp := post(setupRouter(completer), `{"message":"Great onboarding, poor support"}`)

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "fairly neutral") {
		t.Fatal("raw model text leaked into the response")
	}

	var body map[string]any
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["error"] != apierror.MessageMalformed {
		t.Fatalf("unexpected error message: %v", body["error"])
	}
}

func TestGenerateServerFaults(t *testing.T) {
	cases := map[string]*fakeCompleter{
		"upstream failure": {err: sentiment.Upstreamf("groq API error (status 500)")},
		"schema violation": {content: sentiment.TextContent(strings.Replace(neutralJSON, `0.62`, `1.5`, 1))},
	}

	for name, completer := range cases {
		resp := post(setupRouter(completer), `{"message":"hello"}`)
		if resp.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", name, resp.Code)
		}

		var body map[string]any
		json.Unmarshal(resp.Body.Bytes(), &body)
		if body["error"] != apierror.MessageFailed {
			t.Fatalf("%s: unexpected error message %v", name, body["error"])
		}
		if _, ok := body["details"]; ok {
			t.Fatalf("%s: server faults must not carry details", name)
		}
	}
}
