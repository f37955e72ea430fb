package replay

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	replayService "github.com/zhouzirui/agora/backend/internal/service/replay"
	"github.com/zhouzirui/agora/backend/pkg/utils"
)

// Handler 回放视图的HTTP处理器
type Handler struct {
	baseCtx  context.Context
	registry *replayService.Registry
	fetcher  replayService.Fetcher
	upgrader websocket.Upgrader
}

// New 创建回放处理器。加载在 baseCtx 下进行，不随创建请求结束而取消。
func New(baseCtx context.Context, registry *replayService.Registry, fetcher replayService.Fetcher) *Handler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Handler{
		baseCtx:  baseCtx,
		registry: registry,
		fetcher:  fetcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes 注册回放相关的路由，r 应挂载在 /replays 下
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Route("/{viewID}", func(r chi.Router) {
		r.Get("/", h.handleState)
		r.Delete("/", h.handleDelete)
		r.Post("/play", h.control(func(e *replayService.Engine) { e.Play() }))
		r.Post("/pause", h.control(func(e *replayService.Engine) { e.Pause() }))
		r.Post("/restart", h.control(func(e *replayService.Engine) { e.RestartFromBeginning() }))
		r.Post("/seek", h.handleSeek)
		r.Get("/ws", h.handleWebSocket)
	})
}

// viewResponse 是创建和查询回放视图的响应体
type viewResponse struct {
	ViewID string              `json:"viewId"`
	State  replayService.State `json:"state"`
}

// handleCreate 新建回放视图并在后台加载辩论事件
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		DebateID string `json:"debateId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	debateID := strings.TrimSpace(payload.DebateID)
	if debateID == "" {
		utils.RespondError(w, http.StatusBadRequest, "debateId is required")
		return
	}

	viewID, engine := h.registry.Create()
	go func() {
		if err := engine.Load(h.baseCtx, h.fetcher, debateID); err != nil {
			log.Printf("[replay] view=%s load failed: %v", viewID, err)
		}
	}()

	log.Printf("[replay] created view=%s debate=%s", viewID, debateID)
	utils.RespondJSON(w, http.StatusAccepted, viewResponse{ViewID: viewID, State: engine.State()})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	viewID, engine, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, viewResponse{ViewID: viewID, State: engine.State()})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	viewID := chi.URLParam(r, "viewID")
	if err := h.registry.Remove(viewID); err != nil {
		h.respondLookupError(w, err)
		return
	}
	log.Printf("[replay] removed view=%s", viewID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSeek(w http.ResponseWriter, r *http.Request) {
	viewID, engine, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Index *int `json:"index"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Index == nil {
		utils.RespondError(w, http.StatusBadRequest, "index is required")
		return
	}

	engine.SetIndex(*payload.Index)
	utils.RespondJSON(w, http.StatusOK, viewResponse{ViewID: viewID, State: engine.State()})
}

// control 包装不需要请求体的播放控制
func (h *Handler) control(action func(*replayService.Engine)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewID, engine, ok := h.lookup(w, r)
		if !ok {
			return
		}
		action(engine)
		utils.RespondJSON(w, http.StatusOK, viewResponse{ViewID: viewID, State: engine.State()})
	}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (string, *replayService.Engine, bool) {
	viewID := chi.URLParam(r, "viewID")
	engine, err := h.registry.Get(viewID)
	if err != nil {
		h.respondLookupError(w, err)
		return "", nil, false
	}
	return viewID, engine, true
}

func (h *Handler) respondLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, replayService.ErrViewNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondError(w, http.StatusInternalServerError, err.Error())
}
