package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/agora/backend/internal/analysis/vote"
	"github.com/zhouzirui/agora/backend/internal/handler/replay"
	"github.com/zhouzirui/agora/backend/internal/handler/session"
	"github.com/zhouzirui/agora/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/agora/backend/internal/middleware"
	"github.com/zhouzirui/agora/backend/internal/model/debate"
	replayService "github.com/zhouzirui/agora/backend/internal/service/replay"
	sessionService "github.com/zhouzirui/agora/backend/internal/service/session"
	"github.com/zhouzirui/agora/backend/pkg/utils"
)

// LiveTracker is the transport control the session routes drive.
type LiveTracker interface {
	session.Tracker
	Status() debate.ConnectionStatus
}

// Services groups what the routes need.
type Services struct {
	Store      *sessionService.Store
	Tracker    LiveTracker
	Aggregator vote.Aggregator
	Replays    *replayService.Registry
	Fetcher    replayService.Fetcher
	Heartbeat  time.Duration
}

// NewRouter wires HTTP routes to core services. ctx bounds live subscriptions
// and replay loads started by requests.
func NewRouter(ctx context.Context, svc Services) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessionHandler := session.New(ctx, svc.Store, svc.Tracker, svc.Aggregator)
	streamHandler := stream.New(svc.Store, svc.Aggregator, svc.Heartbeat)
	replayHandler := replay.New(ctx, svc.Replays, svc.Fetcher)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":     "ok",
				"connection": svc.Tracker.Status(),
				"replays":    svc.Replays.Len(),
			})
		})

		api.Route("/session", func(r chi.Router) {
			sessionHandler.RegisterRoutes(r)
			streamHandler.RegisterRoutes(r)
		})

		api.Route("/replays", replayHandler.RegisterRoutes)
	})

	return r
}
