package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/agora/backend/internal/analysis/vote"
	"github.com/zhouzirui/agora/backend/internal/model/debate"
	sessionService "github.com/zhouzirui/agora/backend/internal/service/session"
	"github.com/zhouzirui/agora/backend/pkg/utils"
)

// DefaultHeartbeat is how often an idle stream sends a keep-alive comment.
const DefaultHeartbeat = 8 * time.Second

// Handler pushes live session snapshots and tallies via Server-Sent Events
type Handler struct {
	store      *sessionService.Store
	aggregator vote.Aggregator
	heartbeat  time.Duration
}

// New creates a new stream handler
func New(store *sessionService.Store, aggregator vote.Aggregator, heartbeat time.Duration) *Handler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &Handler{
		store:      store,
		aggregator: aggregator,
		heartbeat:  heartbeat,
	}
}

// RegisterRoutes mounts the stream under the session router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

// Update is the payload of a "session" event.
type Update struct {
	Session debate.SessionState `json:"session"`
	Votes   vote.Result         `json:"votes"`
}

// handleStream sends the current state, then one update per store change.
// Bursts of changes are coalesced; the client always receives the latest state.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	override, err := utils.ParseOptionalFloat("threshold", r.URL.Query().Get("threshold"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	changed := make(chan struct{}, 1)
	unsubscribe := h.store.Subscribe(func(debate.SessionState) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	utils.SetupSSEHeaders(w)

	ctx := r.Context()
	log.Printf("[sse] opening session stream remote=%s", r.RemoteAddr)

	if err := h.push(w, flusher, override); err != nil {
		log.Printf("[sse] initial push failed: %v", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing session stream remote=%s", r.RemoteAddr)
			return
		case <-changed:
			if err := h.push(w, flusher, override); err != nil {
				log.Printf("[sse] push failed: %v", err)
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEHeartbeat(w, flusher, t); err != nil {
				return
			}
		}
	}
}

func (h *Handler) push(w http.ResponseWriter, flusher http.Flusher, override *float64) error {
	state := h.store.Snapshot()
	return utils.SendSSEEvent(w, flusher, "session", Update{
		Session: state,
		Votes:   h.aggregator.Tally(state.Events, override),
	})
}
