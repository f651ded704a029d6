package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/astra/backend/internal/handler/chat"
	"github.com/zhouzirui/astra/backend/internal/handler/generate"
	middlewarePkg "github.com/zhouzirui/astra/backend/internal/middleware"
	analyzerService "github.com/zhouzirui/astra/backend/internal/service/analyzer"
	chatService "github.com/zhouzirui/astra/backend/internal/service/chat"
	"github.com/zhouzirui/astra/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(allowedOrigins []string, analyzerSvc *analyzerService.Service, chatSvc *chatService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.RespondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/api", func(api chi.Router) {
		generate.New(analyzerSvc).RegisterRoutes(api)
		chat.NewWebSocketHandler(analyzerSvc, chatSvc).RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
