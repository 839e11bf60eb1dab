package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/hcp-logger/backend/internal/handler/chat"
	hcpHandler "github.com/zhouzirui/hcp-logger/backend/internal/handler/hcp"
	"github.com/zhouzirui/hcp-logger/backend/internal/handler/interaction"
	"github.com/zhouzirui/hcp-logger/backend/internal/handler/stream"
	"github.com/zhouzirui/hcp-logger/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/hcp-logger/backend/internal/middleware"
	"github.com/zhouzirui/hcp-logger/backend/internal/model/hcp"
	aiService "github.com/zhouzirui/hcp-logger/backend/internal/service/ai"
	chatService "github.com/zhouzirui/hcp-logger/backend/internal/service/chat"
	"github.com/zhouzirui/hcp-logger/backend/internal/service/conversation"
	interactionService "github.com/zhouzirui/hcp-logger/backend/internal/service/interaction"
	"github.com/zhouzirui/hcp-logger/backend/pkg/utils"
)

// Services groups what the router wires to HTTP. AI may be nil, in which case
// every chat endpoint answers 503.
type Services struct {
	Directory    hcp.Store
	Chats        *chatService.Service
	AI           *aiService.Service
	Prompts      *aiService.PromptBuilder
	Interactions *interactionService.Service
}

// NewRouter wires HTTP routes to core services.
func NewRouter(svc Services, allowedOrigins []string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(allowedOrigins))

	var (
		turns         interaction.TurnRunner
		conversations *conversation.Service
	)
	if svc.AI != nil {
		turns = svc.AI
		conversations = conversation.NewService(svc.Chats, svc.AI, svc.Directory, svc.Prompts, logger)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "HCP Interaction Logger API is running!"})
	})

	r.Route("/api", func(api chi.Router) {
		interaction.New(turns, svc.Interactions, logger).RegisterRoutes(api)
		hcpHandler.New(svc.Directory).RegisterRoutes(api)
		chat.New(svc.Chats, svc.Directory).RegisterRoutes(api)

		if conversations != nil {
			stream.New(conversations, logger).RegisterRoutes(api)
			ws.New(conversations, svc.Chats, originChecker(allowedOrigins), logger).RegisterRoutes(api)
		} else {
			stream.New(nil, logger).RegisterRoutes(api)
		}
	})

	return r
}

func originChecker(allowed []string) func(string) bool {
	if len(allowed) == 0 {
		allowed = middlewarePkg.DefaultAllowedOrigins
	}
	if slices.Contains(allowed, "*") {
		return nil
	}
	return func(origin string) bool {
		return slices.Contains(allowed, origin)
	}
}
