package session

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/agora/backend/internal/analysis/timeline"
	"github.com/zhouzirui/agora/backend/internal/analysis/vote"
	sessionService "github.com/zhouzirui/agora/backend/internal/service/session"
	"github.com/zhouzirui/agora/backend/internal/service/transport"
	"github.com/zhouzirui/agora/backend/pkg/utils"
)

// Tracker 直播连接控制
type Tracker interface {
	Open(ctx context.Context, debateID string) error
	Close()
}

// Handler 直播会话的HTTP处理器
type Handler struct {
	baseCtx    context.Context
	store      *sessionService.Store
	tracker    Tracker
	aggregator vote.Aggregator
}

// New 创建会话处理器。baseCtx 约束直播订阅的生命周期，请求结束不会中断订阅。
func New(baseCtx context.Context, store *sessionService.Store, tracker Tracker, aggregator vote.Aggregator) *Handler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Handler{
		baseCtx:    baseCtx,
		store:      store,
		tracker:    tracker,
		aggregator: aggregator,
	}
}

// RegisterRoutes 注册会话相关的路由，r 应挂载在 /session 下
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleSnapshot)
	r.Post("/open", h.handleOpen)
	r.Post("/close", h.handleClose)
	r.Post("/reset", h.handleReset)
	r.Post("/round", h.handleRound)
	r.Get("/votes", h.handleVotes)
	r.Get("/timeline", h.handleTimeline)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.store.Snapshot())
}

// handleOpen 清空上一场会话并开始观察新的辩论
func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
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

	h.tracker.Close()
	h.store.Reset()
	h.store.SetActiveDebate(&debateID)

	if err := h.tracker.Open(h.baseCtx, debateID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, transport.ErrDebateIDRequired) {
			status = http.StatusBadRequest
		}
		log.Printf("[session] open debate=%s failed: %v", debateID, err)
		utils.RespondError(w, status, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, h.store.Snapshot())
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request) {
	h.tracker.Close()
	utils.RespondJSON(w, http.StatusOK, h.store.Snapshot())
}

// handleReset 关闭连接并回到空闲初始状态
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.tracker.Close()
	h.store.Reset()
	utils.RespondJSON(w, http.StatusOK, h.store.Snapshot())
}

func (h *Handler) handleRound(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Round *int `json:"round"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Round == nil || *payload.Round < 0 {
		utils.RespondError(w, http.StatusBadRequest, "round must be a non-negative integer")
		return
	}

	h.store.SetRound(*payload.Round)
	utils.RespondJSON(w, http.StatusOK, h.store.Snapshot())
}

// handleVotes 基于当前事件日志重新计票，threshold 查询参数可覆盖默认阈值
func (h *Handler) handleVotes(w http.ResponseWriter, r *http.Request) {
	override, err := utils.ParseOptionalFloat("threshold", r.URL.Query().Get("threshold"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.aggregator.Tally(h.store.Events(), override))
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, timeline.Project(h.store.Events()))
}
