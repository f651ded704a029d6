package generate

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/astra/backend/internal/handler/apierror"
	"github.com/zhouzirui/astra/backend/internal/model/analysis"
	"github.com/zhouzirui/astra/backend/pkg/utils"
)

const maxBodyBytes = 64 << 10

// Analyzer runs the analysis pipeline on a raw request body.
type Analyzer interface {
	Analyze(ctx context.Context, body io.Reader) (analysis.Result, error)
}

// Response is the success body of POST /generate.
type Response struct {
	Analysis analysis.Result `json:"analysis"`
}

// Handler serves the analysis endpoint.
type Handler struct {
	analyzer Analyzer
}

// New creates the analysis handler.
func New(analyzer Analyzer) *Handler {
	return &Handler{analyzer: analyzer}
}

// RegisterRoutes mounts the analysis endpoint on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/generate", h.handleGenerate)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)

	result, err := h.analyzer.Analyze(r.Context(), body)
	if err != nil {
		resp := apierror.From(err)
		utils.RespondJSON(w, resp.Status, resp.Body)
		return
	}

	utils.RespondJSON(w, http.StatusOK, Response{Analysis: result})
}
