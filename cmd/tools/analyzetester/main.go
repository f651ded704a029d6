package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/zhouzirui/astra/backend/internal/config"
	"github.com/zhouzirui/astra/backend/internal/handler/generate"
	"github.com/zhouzirui/astra/backend/internal/model/analysis"
	"github.com/zhouzirui/astra/backend/internal/model/chat"
	"github.com/zhouzirui/astra/backend/internal/render"
	"github.com/zhouzirui/astra/backend/internal/service/ai"
	"github.com/zhouzirui/astra/backend/internal/service/analyzer"
	"github.com/zhouzirui/astra/backend/pkg/utils"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	mode := flag.String("mode", "local", "run mode: local (in-process pipeline) or http (running server)")
	addr := flag.String("addr", "http://localhost:8080", "server base URL for -mode=http")
	text := flag.String("text", "", "text to analyze, read from stdin when empty")
	timeout := flag.Duration("timeout", 45*time.Second, "overall request timeout")
	color := flag.Bool("color", isatty.IsTerminal(os.Stdout.Fd()), "colorize output")

	flag.Parse()

	message := *text
	if strings.TrimSpace(message) == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("failed to read stdin: %v", err)
		}
		message = strings.TrimRight(string(raw), "\n")
	}

	body, err := json.Marshal(analysis.Request{Message: message})
	if err != nil {
		log.Fatalf("failed to encode request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var result analysis.Result
	switch *mode {
	case "local":
		result, err = runLocal(ctx, body)
	case "http":
		result, err = runHTTP(ctx, *addr, body)
	default:
		flag.Usage()
		log.Fatal("use -mode=local or -mode=http")
	}
	if err != nil {
		log.Fatalf("analysis failed: %v", err)
	}

	opts := render.Options{Color: *color}
	now := time.Now()
	render.Bubble(os.Stdout, chat.Message{Role: chat.RoleUser, Content: message, CreatedAt: now}, opts)
	fmt.Println()
	render.Bubble(os.Stdout, chat.Message{Role: chat.RoleAssistant, Content: result.Summary, CreatedAt: time.Now(), Analysis: &result}, opts)
}

func runLocal(ctx context.Context, body []byte) (analysis.Result, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] failed to load .env, using system environment: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return analysis.Result{}, fmt.Errorf("load configuration: %w", err)
	}

	chatModel, err := cfg.AI.NewChatModel(ctx)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("create chat model: %w", err)
	}

	aiService, err := ai.NewService(ctx, chatModel, cfg.AI)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("init AI service: %w", err)
	}

	log.Printf("running local pipeline provider=%s model=%s", cfg.AI.Provider, cfg.AI.Model)
	return analyzer.NewService(aiService).Analyze(ctx, bytes.NewReader(body))
}

func runHTTP(ctx context.Context, addr string, body []byte) (analysis.Result, error) {
	url := strings.TrimRight(addr, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return analysis.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("posting to %s", url)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody utils.ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
			return analysis.Result{}, fmt.Errorf("server returned %d", resp.StatusCode)
		}
		if errBody.Details != nil {
			details, _ := json.Marshal(errBody.Details)
			return analysis.Result{}, fmt.Errorf("server returned %d: %s %s", resp.StatusCode, errBody.Error, details)
		}
		return analysis.Result{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, errBody.Error)
	}

	var out generate.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return analysis.Result{}, fmt.Errorf("decode response: %w", err)
	}
	return out.Analysis, nil
}
