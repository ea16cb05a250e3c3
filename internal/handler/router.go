package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/edupal/backend/internal/handler/chat"
	"github.com/zhouzirui/edupal/backend/internal/handler/dashboard"
	roleHandler "github.com/zhouzirui/edupal/backend/internal/handler/role"
	"github.com/zhouzirui/edupal/backend/internal/handler/stream"
	"github.com/zhouzirui/edupal/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/edupal/backend/internal/middleware"
	dashboardModel "github.com/zhouzirui/edupal/backend/internal/model/dashboard"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
	chatService "github.com/zhouzirui/edupal/backend/internal/service/chat"
	"github.com/zhouzirui/edupal/backend/pkg/utils"
)

// Options tunes the HTTP surface.
type Options struct {
	MaxMessageLength int
	Heartbeat        time.Duration
}

// NewRouter wires HTTP routes to core services.
func NewRouter(roles role.Store, dashboards dashboardModel.Store, chatSvc *chatService.Service, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		roleHandler.New(roles).RegisterRoutes(api)
		dashboard.New(dashboards).RegisterRoutes(api)

		// Session REST endpoints plus the two push channels
		chat.New(chatSvc, opts.MaxMessageLength).RegisterRoutes(api)
		stream.New(chatSvc, opts.Heartbeat).RegisterRoutes(api)
		ws.New(chatSvc, opts.MaxMessageLength).RegisterRoutes(api)
	})

	return r
}
